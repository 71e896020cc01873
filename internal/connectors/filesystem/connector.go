// Package filesystem reads markdown and text files from a local directory tree.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
	"github.com/mitiak/raggy/internal/logger"
)

// ConnectorType is the identifier returned by Type.
const ConnectorType = "filesystem"

// DefaultMaxFileSize bounds how many bytes a single file may contain.
const DefaultMaxFileSize int64 = 10 << 20

// ErrClosed is returned when the connector has been closed.
var ErrClosed = errors.New("connector closed")

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// mimeTypes maps lower-case extensions to MIME types. Files with other
// extensions are skipped.
var mimeTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".text":     "text/plain",
	".rst":      "text/x-rst",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".sh":       "text/x-shellscript",
	".csv":      "text/csv",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".json":     "application/json",
}

// Connector walks a directory tree.
type Connector struct {
	rootPath    string
	maxFileSize int64

	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
}

// Option configures a Connector.
type Option func(*Connector)

// WithMaxFileSize skips files larger than n bytes.
func WithMaxFileSize(n int64) Option {
	return func(c *Connector) {
		if n > 0 {
			c.maxFileSize = n
		}
	}
}

// New creates a connector rooted at rootPath.
func New(rootPath string, opts ...Option) *Connector {
	c := &Connector{
		rootPath:    rootPath,
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return ConnectorType
}

// Root returns the directory being read.
func (c *Connector) Root() string {
	return c.rootPath
}

// Validate checks that the root exists and is a directory.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.checkRoot()
}

func (c *Connector) checkRoot() error {
	info, err := os.Stat(c.rootPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: directory does not exist: %s", domain.ErrInvalidInput, c.rootPath)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", c.rootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: not a directory: %s", domain.ErrInvalidInput, c.rootPath)
	}
	return nil
}

// FullSync streams every supported file under the root in lexical order.
// Unreadable files are reported on the error channel and skipped.
func (c *Connector) FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		if err := c.checkRoot(); err != nil {
			errs <- err
			return
		}

		send := func(err error) bool {
			select {
			case errs <- err:
				return true
			case <-ctx.Done():
				return false
			}
		}

		walkErr := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				if !send(fmt.Errorf("walk %s: %w", path, err)) {
					return ctx.Err()
				}
				return nil
			}
			if path != c.rootPath && isHidden(d.Name()) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if detectMIMEType(path) == "" {
				return nil
			}

			raw, err := c.read(path)
			if err != nil {
				if !send(err) {
					return ctx.Err()
				}
				return nil
			}
			if raw == nil {
				return nil
			}

			select {
			case docs <- *raw:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, context.DeadlineExceeded) {
			send(walkErr)
		}
	}()

	return docs, errs
}

// Watch streams file changes under the root until ctx is cancelled or the
// connector is closed. New subdirectories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.mu.Unlock()

	if err := c.checkRoot(); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(watcher, c.rootPath); err != nil {
		watcher.Close() //nolint:errcheck
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		watcher.Close() //nolint:errcheck
		return nil, ErrClosed
	}
	c.watchers = append(c.watchers, watcher)
	c.mu.Unlock()

	changes := make(chan domain.RawDocumentChange)
	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				change, ok := c.translate(watcher, event)
				if !ok {
					continue
				}
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Filesystem watch error under %s: %v", c.rootPath, err)
			}
		}
	}()

	return changes, nil
}

// Close stops every active watch. Safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for _, w := range c.watchers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.watchers = nil
	return errors.Join(errs...)
}

// translate maps an fsnotify event to a document change.
func (c *Connector) translate(watcher *fsnotify.Watcher, event fsnotify.Event) (domain.RawDocumentChange, bool) {
	path := event.Name
	if isHidden(filepath.Base(path)) {
		return domain.RawDocumentChange{}, false
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if detectMIMEType(path) == "" {
			return domain.RawDocumentChange{}, false
		}
		return domain.RawDocumentChange{
			Type:     domain.ChangeDeleted,
			Document: domain.RawDocument{URI: path, MIMEType: detectMIMEType(path)},
		}, true
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return domain.RawDocumentChange{}, false
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.RawDocumentChange{}, false
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := addTree(watcher, path); err != nil {
				logger.Warn("Failed to watch %s: %v", path, err)
			}
		}
		return domain.RawDocumentChange{}, false
	}
	if detectMIMEType(path) == "" {
		return domain.RawDocumentChange{}, false
	}

	raw, err := c.read(path)
	if err != nil || raw == nil {
		if err != nil {
			logger.Warn("Failed to read %s: %v", path, err)
		}
		return domain.RawDocumentChange{}, false
	}

	changeType := domain.ChangeUpdated
	if event.Has(fsnotify.Create) {
		changeType = domain.ChangeCreated
	}
	return domain.RawDocumentChange{Type: changeType, Document: *raw}, true
}

// read loads a file. A nil document means the file was skipped.
func (c *Connector) read(path string) (*domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > c.maxFileSize {
		logger.Debug("Skipping %s: %d bytes exceeds limit", path, info.Size())
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		rel = filepath.Base(path)
	}

	return &domain.RawDocument{
		URI:        abs,
		MIMEType:   detectMIMEType(path),
		Content:    content,
		ModifiedAt: info.ModTime().UTC(),
		Metadata: map[string]any{
			"filename":      filepath.Base(path),
			"extension":     strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
			"relative_path": filepath.ToSlash(rel),
		},
	}, nil
}

// ==================== Helper Functions ====================

// addTree watches dir and every non-hidden directory below it.
func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return fs.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// detectMIMEType returns "" for unsupported extensions.
func detectMIMEType(path string) string {
	return mimeTypes[strings.ToLower(filepath.Ext(path))]
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
