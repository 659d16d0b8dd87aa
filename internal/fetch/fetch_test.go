package fetch

import "testing"

func TestWanted(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"fort.63", true},
		{"fort.63.nc", true},
		{"FORT.64", true},
		{"maxele.63", true},
		{"maxele.63.nc", true},
		{"minpr.63", true},
		{"fort.53", true},
		{"fort.15", false},
		{"fort.22", false},
		{"padcirc.log", false},
		{"fort.61", false}, // station files are skipped downstream, not fetched
	}
	for _, tt := range tests {
		if got := wanted(tt.name); got != tt.want {
			t.Errorf("wanted(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNewClientAnonymousDefault(t *testing.T) {
	c := NewClient("ftp.example.org:21", "", "", nil)
	if c.user != "anonymous" || c.password != "anonymous" {
		t.Errorf("credentials = %q/%q", c.user, c.password)
	}
	if c.logger == nil {
		t.Error("nil logger not defaulted")
	}
}
