package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher downloads bulk files from council FTP servers. Credentials in
// the URL are used when present; otherwise the login is anonymous.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates an FTPFetcher.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

type ftpTarget struct {
	host     string
	path     string
	user     string
	password string
}

func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "fetcher: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("fetcher: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpTarget{}, eris.New("fetcher: empty path in ftp url")
	}

	t := ftpTarget{
		host:     u.Host,
		path:     u.Path,
		user:     "anonymous",
		password: "anonymous@",
	}
	if _, _, err := net.SplitHostPort(t.host); err != nil {
		t.host = net.JoinHostPort(t.host, "21")
	}
	if u.User != nil {
		t.user = u.User.Username()
		t.password, _ = u.User.Password()
	}
	return t, nil
}

// ftpBody closes the FTP response and the control connection together.
type ftpBody struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (b *ftpBody) Read(p []byte) (int, error) { return b.resp.Read(p) }

func (b *ftpBody) Close() error {
	respErr := b.resp.Close()
	quitErr := b.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "fetcher: close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "fetcher: quit ftp connection")
	}
	return nil
}

// Download implements Fetcher.
func (f *FTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	t, err := parseFTPURL(rawURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("fetcher: ftp connect", zap.String("host", t.host), zap.String("path", t.path))

	conn, err := ftp.Dial(t.host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: ftp dial")
	}
	if err := conn.Login(t.user, t.password); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "fetcher: ftp login")
	}

	resp, err := conn.Retr(t.path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "fetcher: ftp retrieve")
	}
	return &ftpBody{resp: resp, conn: conn}, nil
}
