package fort13

import (
	"bufio"
	"fmt"
	"os"
)

// Attribute is one nodal attribute card for writing: dense per-component
// value arrays plus the defaults that fix the sparse encoding.
type Attribute struct {
	Name     string
	Units    string
	Defaults []float64
	Values   [][]float64 // one dense array per component
}

// exceptions returns the 1-based node ids whose value differs from the
// default in any component.
func (a *Attribute) exceptions() []int {
	if len(a.Values) == 0 {
		return nil
	}
	var ids []int
	for j := range a.Values[0] {
		for k, def := range a.Defaults {
			if a.Values[k][j] != def {
				ids = append(ids, j+1)
				break
			}
		}
	}
	return ids
}

// Write emits a fort.13 using the sparse exception encoding: per attribute,
// only the nodes whose values differ from the declared defaults are listed.
// Reading the file back resolves to the same dense arrays.
func Write(path, gridName string, numNodes int, atts []Attribute) error {
	for _, a := range atts {
		if len(a.Defaults) == 0 || len(a.Values) != len(a.Defaults) {
			return fmt.Errorf("attribute %s: %d default(s) for %d component array(s)", a.Name, len(a.Defaults), len(a.Values))
		}
		for _, vals := range a.Values {
			if len(vals) != numNodes {
				return fmt.Errorf("attribute %s: %d values for %d nodes", a.Name, len(vals), numNodes)
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create fort.13: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, gridName)
	fmt.Fprintln(w, numNodes)
	fmt.Fprintln(w, len(atts))

	for _, a := range atts {
		units := a.Units
		if units == "" {
			units = "unitless"
		}
		fmt.Fprintln(w, a.Name)
		fmt.Fprintln(w, units)
		fmt.Fprintln(w, len(a.Defaults))
		for k, d := range a.Defaults {
			if k > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%g", d)
		}
		fmt.Fprintln(w)
	}

	for i := range atts {
		a := &atts[i]
		ids := a.exceptions()
		fmt.Fprintln(w, a.Name)
		fmt.Fprintln(w, len(ids))
		for _, id := range ids {
			fmt.Fprint(w, id)
			for k := range a.Values {
				fmt.Fprintf(w, " %g", a.Values[k][id-1])
			}
			fmt.Fprintln(w)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("write fort.13: %w", err)
	}
	return nil
}
