package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/coastalkit/adcirc/internal/fetch"
	"github.com/coastalkit/adcirc/internal/fort14"
	"github.com/coastalkit/adcirc/internal/ingest"
	"github.com/coastalkit/adcirc/internal/models"
	"github.com/coastalkit/adcirc/internal/quicklook"
	"github.com/coastalkit/adcirc/internal/store"
)

type cli struct {
	DB string `env:"ADCIRC_DB" default:"data/adcirc.db" help:"Path to the SQLite catalog."`

	Import    importCmd    `cmd:"" help:"Import a fort.14 mesh plus optional attributes and solution files."`
	Fetch     fetchCmd     `cmd:"" help:"Download run output from an FTP results host."`
	Quicklook quicklookCmd `cmd:"" help:"Render an imported mesh (and optionally a dataset) to a PNG."`
	Watch     watchCmd     `cmd:"" help:"Poll a directory and import solution files as they appear."`
	List      listCmd      `cmd:"" help:"List imported meshes and their datasets."`
}

// appCtx carries the opened catalog into the subcommands.
type appCtx struct {
	store  *store.Store
	logger *log.Logger
}

type importCmd struct {
	Mesh       string   `arg:"" help:"Path to the fort.14 mesh file."`
	Attributes string   `help:"Path to a fort.13 nodal attributes file."`
	Solutions  []string `help:"Solution files or a directory of them."`
	Boundaries bool     `default:"true" negatable:"" help:"Read the boundary sections."`
	Geographic bool     `help:"Force geographic coordinates instead of guessing from extents."`
	Strict     bool     `help:"Treat truncated solution timesteps as errors instead of dropping them."`
}

func (c *importCmd) Run(app *appCtx) error {
	p := ingest.New(app.store, app.logger)
	p.Strict = c.Strict

	var hint *fort14.Hint
	if c.Geographic {
		hint = &fort14.Hint{Geographic: true}
	}
	res, err := p.ImportMesh(c.Mesh, c.Boundaries, hint)
	if err != nil {
		return fmt.Errorf("import mesh: %w", err)
	}

	if c.Attributes != "" {
		n, err := p.ImportAttributes(c.Attributes, res.Mesh)
		if err != nil {
			return fmt.Errorf("import attributes: %w", err)
		}
		app.logger.Printf("imported %d attribute dataset(s)", n)
	}

	paths, err := expandSolutionArgs(c.Solutions)
	if err != nil {
		return err
	}
	if len(paths) > 0 {
		n, err := p.ImportSolutions(paths, res.Mesh)
		if err != nil {
			return fmt.Errorf("import solutions: %w", err)
		}
		app.logger.Printf("imported %d solution dataset(s)", n)
	}

	fmt.Println(res.Mesh.UUID)
	return nil
}

// expandSolutionArgs flattens directory arguments into their file lists.
func expandSolutionArgs(args []string) ([]string, error) {
	var paths []string
	for _, a := range args {
		fi, err := os.Stat(a)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", a, err)
		}
		if !fi.IsDir() {
			paths = append(paths, a)
			continue
		}
		files, err := ingest.SolutionFiles(a)
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}
	return paths, nil
}

type fetchCmd struct {
	Host     string `env:"ADCIRC_FTP_HOST" required:"" help:"FTP host:port of the results server."`
	User     string `env:"ADCIRC_FTP_USER" help:"FTP username (anonymous when empty)."`
	Password string `env:"ADCIRC_FTP_PASSWORD" help:"FTP password."`
	Remote   string `arg:"" help:"Remote run directory."`
	Local    string `arg:"" help:"Local directory to download into."`
}

func (c *fetchCmd) Run(app *appCtx) error {
	client := fetch.NewClient(c.Host, c.User, c.Password, app.logger)
	paths, err := client.FetchRun(c.Remote, c.Local)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

type quicklookCmd struct {
	MeshUUID string `arg:"" help:"UUID of an imported mesh."`
	Out      string `default:"quicklook.png" help:"Output PNG path."`
	Dataset  string `help:"UUID of a dataset to color the nodes by."`
	Width    int    `default:"1024" help:"Image width in pixels."`
}

func (c *quicklookCmd) Run(app *appCtx) error {
	mesh, _, err := app.store.GetMesh(c.MeshUUID)
	if err != nil {
		return fmt.Errorf("load mesh: %w", err)
	}
	if mesh == nil {
		return fmt.Errorf("no mesh with UUID %s", c.MeshUUID)
	}

	var dset *models.Dataset
	if c.Dataset != "" {
		if dset, err = app.store.GetDataset(c.Dataset); err != nil {
			return fmt.Errorf("load dataset: %w", err)
		}
		if dset == nil {
			return fmt.Errorf("no dataset with UUID %s", c.Dataset)
		}
	}

	if err := quicklook.WritePNG(c.Out, mesh, dset, c.Width); err != nil {
		return err
	}
	app.logger.Printf("wrote %s", c.Out)
	return nil
}

type watchCmd struct {
	MeshUUID    string        `arg:"" help:"UUID of the imported mesh the solutions belong to."`
	Dir         string        `arg:"" help:"Directory to watch for solution files."`
	Interval    time.Duration `default:"30s" help:"Poll interval."`
	MetricsAddr string        `default:":9090" help:"Address to serve Prometheus metrics on."`
	Strict      bool          `help:"Treat truncated solution timesteps as errors instead of dropping them."`
}

func (c *watchCmd) Run(app *appCtx) error {
	mesh, _, err := app.store.GetMesh(c.MeshUUID)
	if err != nil {
		return fmt.Errorf("load mesh: %w", err)
	}
	if mesh == nil {
		return fmt.Errorf("no mesh with UUID %s", c.MeshUUID)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: c.MetricsAddr, Handler: mux}
	go func() {
		app.logger.Printf("serving metrics on %s/metrics", c.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Printf("metrics server: %v", err)
		}
	}()
	defer srv.Shutdown(context.Background())

	p := ingest.New(app.store, app.logger)
	p.Strict = c.Strict
	if err := p.Watch(ctx, c.Dir, mesh, c.Interval); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

type listCmd struct{}

func (c *listCmd) Run(app *appCtx) error {
	meshes, err := app.store.ListMeshes()
	if err != nil {
		return err
	}
	if len(meshes) == 0 {
		fmt.Println("no meshes imported")
		return nil
	}
	for _, m := range meshes {
		fmt.Printf("%s  %s  (%s, %d nodes, %d elements)\n", m.UUID, m.Name, m.CoordSys, m.NumNodes, m.NumCells)
		dsets, err := app.store.ListDatasets(m.UUID)
		if err != nil {
			return err
		}
		for _, d := range dsets {
			kind := "scalar"
			if d.NumComponents == 2 {
				kind = "vector"
			}
			if d.Extreme {
				kind += ", extreme"
			}
			fmt.Printf("    %s  %s  (%s, %d timestep(s))\n", d.UUID, d.Name, kind, d.NumTimesteps)
		}
	}
	return nil
}

func main() {
	var args cli
	k := kong.Parse(&args,
		kong.Name("adcirc"),
		kong.Description("Import, catalog, and inspect ADCIRC mesh and solution files."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	logger := log.New(os.Stderr, "", log.LstdFlags)

	db, err := sql.Open("sqlite", args.DB)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	k.FatalIfErrorf(k.Run(&appCtx{store: st, logger: logger}))
}
