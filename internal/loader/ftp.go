package loader

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rostermine/internal/model"
)

// FTPFetcher downloads roster exports from an FTP drop.
type FTPFetcher struct {
	timeout time.Duration
}

// NewFTPFetcher creates an FTP fetcher with the given connect timeout.
func NewFTPFetcher(timeout time.Duration) *FTPFetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &FTPFetcher{timeout: timeout}
}

// ReadCSVURL downloads the CSV roster at the given ftp:// URL and parses it.
func (f *FTPFetcher) ReadCSVURL(ctx context.Context, ftpURL string, opts CSVOptions) ([]model.AssignmentRecord, error) {
	rc, err := f.download(ctx, ftpURL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadCSV(rc, opts)
}

// download connects, logs in, and retrieves the file. The caller must close
// the returned reader to release the FTP connection.
func (f *FTPFetcher) download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	host, path, user, pass, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("loader: ftp connecting", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "loader: ftp dial")
	}

	if err := conn.Login(user, pass); err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "loader: ftp login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "loader: ftp retrieve")
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// parseFTPURL extracts host (with port), path, and credentials from an FTP
// URL. Anonymous login is used when no credentials are present.
func parseFTPURL(rawURL string) (host, path, user, pass string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", "", eris.Wrap(err, "loader: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", "", "", eris.Errorf("loader: expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", "", "", eris.New("loader: empty path in ftp url")
	}

	user, pass = "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}

	return host, path, user, pass, nil
}

// ftpConnReader ties the FTP response to its connection so closing the
// reader also disconnects from the server.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "loader: close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "loader: quit ftp connection")
	}
	return nil
}
