// Package fetch downloads ADCIRC run output from an FTP results host into
// a local directory so the solution importer can read it. HPC clusters
// commonly publish run directories over anonymous FTP.
package fetch

import (
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"

	"github.com/coastalkit/adcirc/internal/metrics"
)

const dialTimeout = 30 * time.Second

// solutionPrefixes match the ADCIRC output files worth pulling from a run
// directory; everything else (input decks, logs) is left behind.
var solutionPrefixes = []string{
	"fort.53", "fort.54", "fort.63", "fort.64", "fort.73", "fort.74",
	"maxele.63", "maxvel.63", "maxwvel.63", "minpr.63", "maxrs.63",
}

// Client fetches run output from one FTP host.
type Client struct {
	host     string // host:port
	user     string
	password string
	logger   *log.Logger
}

// NewClient returns a client for host (host:port). Empty credentials log
// in anonymously. A nil logger uses the default logger.
func NewClient(host, user, password string, logger *log.Logger) *Client {
	if user == "" {
		user = "anonymous"
		password = "anonymous"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{host: host, user: user, password: password, logger: logger}
}

// wanted reports whether name looks like a global solution file.
func wanted(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range solutionPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// FetchRun downloads every solution file under remoteDir into localDir and
// returns the local paths. The whole operation is retried with exponential
// backoff; unreachable-host errors retry, protocol errors do not.
func (c *Client) FetchRun(remoteDir, localDir string) ([]string, error) {
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return nil, fmt.Errorf("create local dir: %w", err)
	}

	var fetched []string
	operation := func() error {
		conn, err := ftp.Dial(c.host, ftp.DialWithTimeout(dialTimeout))
		if err != nil {
			return fmt.Errorf("ftp dial: %w", err)
		}
		defer conn.Quit()

		if err := conn.Login(c.user, c.password); err != nil {
			return backoff.Permanent(fmt.Errorf("ftp login: %w", err))
		}

		entries, err := conn.List(remoteDir)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("ftp list %s: %w", remoteDir, err))
		}

		fetched = fetched[:0]
		for _, entry := range entries {
			if entry.Type != ftp.EntryTypeFile || !wanted(entry.Name) {
				continue
			}
			local, err := c.download(conn, path.Join(remoteDir, entry.Name), filepath.Join(localDir, entry.Name))
			if err != nil {
				return fmt.Errorf("download %s: %w", entry.Name, err)
			}
			fetched = append(fetched, local)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 5 * time.Minute
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	c.logger.Printf("fetched %d solution file(s) from %s%s", len(fetched), c.host, remoteDir)
	return fetched, nil
}

func (c *Client) download(conn *ftp.ServerConn, remote, local string) (string, error) {
	resp, err := conn.Retr(remote)
	if err != nil {
		return "", fmt.Errorf("ftp retr: %w", err)
	}
	defer resp.Close()

	f, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", local, err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp)
	if err != nil {
		return "", fmt.Errorf("copy %s: %w", local, err)
	}
	metrics.FetchedBytes.Add(float64(n))
	metrics.FetchedFiles.Inc()
	c.logger.Printf("fetched %s (%d bytes)", filepath.Base(local), n)
	return local, nil
}
