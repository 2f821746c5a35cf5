package publish

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"time"

	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/jira-metrics/internal/model"
)

const defaultFolder = "INBOX"

// MailboxPublisher appends the report as a message with a CSV
// attachment to an IMAP folder.
type MailboxPublisher struct {
	cfg model.MailboxConfig
	now func() time.Time
}

// NewMailboxPublisher creates a publisher for the configured mailbox.
func NewMailboxPublisher(cfg model.MailboxConfig) *MailboxPublisher {
	if cfg.Folder == "" {
		cfg.Folder = defaultFolder
	}
	if cfg.Port == "" {
		cfg.Port = "993"
	}
	return &MailboxPublisher{cfg: cfg, now: time.Now}
}

// Name implements Publisher.
func (p *MailboxPublisher) Name() string { return "imap" }

// connect dials the server and authenticates. The connection is closed
// as soon as ctx is done, which fails any pending command. The caller
// must log out and call the returned stop function.
func (p *MailboxPublisher) connect(ctx context.Context) (*imapclient.Client, func() bool, error) {
	addr := net.JoinHostPort(p.cfg.Host, p.cfg.Port)
	tlsConfig := &tls.Config{ServerName: p.cfg.Host}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	fail := func(err error) (*imapclient.Client, func() bool, error) {
		stop()
		conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	var client *imapclient.Client
	if p.cfg.TLS {
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return fail(err)
		}
		client = imapclient.New(tlsConn, nil)
	} else {
		client, err = imapclient.NewStartTLS(conn, &imapclient.Options{TLSConfig: tlsConfig})
		if err != nil {
			return fail(err)
		}
	}

	if err := client.Login(p.cfg.Username, p.cfg.Password).Wait(); err != nil {
		_ = client.Close()
		stop()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, fmt.Errorf("connecting to IMAP %s: %w", addr, ctxErr)
		}
		return nil, nil, fmt.Errorf("IMAP authentication failed for %s: %w", p.cfg.Username, err)
	}

	return client, stop, nil
}

// Publish appends the report to the configured folder. Cancelling ctx
// aborts the dial or a pending append.
func (p *MailboxPublisher) Publish(ctx context.Context, name string, data []byte) (string, error) {
	msg, err := composeMessage(p.cfg.Username, filepath.Base(name), data, p.now())
	if err != nil {
		return "", err
	}

	client, stop, err := p.connect(ctx)
	if err != nil {
		return "", err
	}
	defer stop()
	defer func() { _ = client.Logout().Wait() }()

	cmd := client.Append(p.cfg.Folder, int64(len(msg)), nil)
	if _, err := cmd.Write(msg); err != nil {
		_ = cmd.Close()
		return "", fmt.Errorf("writing message: %w", err)
	}
	if err := cmd.Close(); err != nil {
		return "", fmt.Errorf("closing append: %w", err)
	}
	if _, err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", fmt.Errorf("appending to %s: %w", p.cfg.Folder, err)
	}

	return "imap://" + p.cfg.Host + "/" + p.cfg.Folder, nil
}

// composeMessage builds a multipart message carrying the CSV as an attachment.
func composeMessage(from, filename string, data []byte, at time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(at)
	h.SetAddressList("From", []*mail.Address{{Name: "Jira metrics", Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: from}})
	h.SetSubject("Jira metrics: " + filename)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("creating body: %w", err)
	}
	var th mail.InlineHeader
	th.Set("Content-Type", "text/plain; charset=utf-8")
	w, err := tw.CreatePart(th)
	if err != nil {
		return nil, fmt.Errorf("creating body part: %w", err)
	}
	fmt.Fprintf(w, "Extraction finished at %s.\r\n", at.UTC().Format(time.RFC3339))
	w.Close()
	tw.Close()

	var ah mail.AttachmentHeader
	ah.Set("Content-Type", "text/csv; charset=utf-8")
	ah.Set("Content-Transfer-Encoding", "base64")
	ah.SetFilename(filename)
	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return nil, fmt.Errorf("creating attachment: %w", err)
	}
	if _, err := io.Copy(aw, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("writing attachment: %w", err)
	}
	aw.Close()

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finishing message: %w", err)
	}
	return buf.Bytes(), nil
}
