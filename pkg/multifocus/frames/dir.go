package frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder

	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
)

// DefaultPattern matches every supported image format at any depth.
const DefaultPattern = "**.{png,jpg,jpeg,bmp,tif,tiff}"

// ErrNoFrames is returned by OpenDir when nothing matches and the source
// cannot wait for new files.
var ErrNoFrames = errors.New("no frames found")

// DirOptions configures a directory source.
type DirOptions struct {
	// Dir is the root directory searched recursively.
	Dir string
	// Pattern is a glob over slash-separated paths relative to Dir.
	Pattern string
	// FPS paces delivery; zero delivers as fast as frames are read.
	FPS float64
	// Loop restarts from the first file after the last one.
	Loop bool
	// Follow waits for new files instead of ending.
	Follow bool
}

// DirSource replays image files from a directory in lexical path order.
type DirSource struct {
	opts    DirOptions
	match   glob.Glob
	pacer   *Pacer
	files   []string
	known   map[string]bool
	pos     int
	emitted uint64
	watcher *fsnotify.Watcher
}

// OpenDir collects the files under opts.Dir that match opts.Pattern.
func OpenDir(opts DirOptions) (*DirSource, error) {
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	match, err := glob.Compile(opts.Pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("compiling frame pattern %q: %w", opts.Pattern, err)
	}
	root, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving frame directory: %w", err)
	}
	opts.Dir = root

	s := &DirSource{
		opts:  opts,
		match: match,
		pacer: NewPacer(opts.FPS),
		known: make(map[string]bool),
	}

	dirs, err := s.scan()
	if err != nil {
		return nil, err
	}
	if len(s.files) == 0 && !opts.Follow {
		return nil, fmt.Errorf("%w in %s matching %s", ErrNoFrames, root, opts.Pattern)
	}

	if opts.Follow {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("creating watcher: %w", err)
		}
		for _, d := range dirs {
			if err := w.Add(d); err != nil {
				_ = w.Close()
				return nil, fmt.Errorf("watching %s: %w", d, err)
			}
		}
		s.watcher = w
	}

	logging.Get("frames").Info("frame directory opened",
		"dir", root, "files", len(s.files), "follow", opts.Follow, "loop", opts.Loop)
	return s, nil
}

// scan walks the root and returns the directories it visited.
func (s *DirSource) scan() ([]string, error) {
	var (
		mu    sync.Mutex
		files []string
		dirs  []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, s.opts.Dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		mu.Lock()
		defer mu.Unlock()
		if d.IsDir() {
			dirs = append(dirs, path)
			return nil
		}
		if s.matches(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.opts.Dir, err)
	}

	if !slices.Contains(dirs, s.opts.Dir) {
		dirs = append(dirs, s.opts.Dir)
	}
	slices.Sort(files)
	for _, f := range files {
		s.known[f] = true
	}
	s.files = files
	return dirs, nil
}

func (s *DirSource) matches(path string) bool {
	rel, err := filepath.Rel(s.opts.Dir, path)
	if err != nil {
		return false
	}
	return s.match.Match(filepath.ToSlash(rel))
}

// Files returns the paths queued so far.
func (s *DirSource) Files() []string {
	return slices.Clone(s.files)
}

// Next decodes the next file. Files that fail to decode are logged and
// skipped.
func (s *DirSource) Next(ctx context.Context) (Frame, error) {
	for {
		if s.pos >= len(s.files) {
			switch {
			case s.opts.Loop && len(s.files) > 0:
				s.pos = 0
			case s.watcher != nil:
				if err := s.await(ctx); err != nil {
					return Frame{}, err
				}
				continue
			default:
				return Frame{}, io.EOF
			}
		}

		if err := s.pacer.Wait(ctx); err != nil {
			return Frame{}, err
		}

		path := s.files[s.pos]
		s.pos++
		img, err := decode(path)
		if err != nil {
			logging.Get("frames").Warn("skipping unreadable frame", "path", path, "error", err)
			continue
		}

		b := img.Bounds()
		f := Frame{
			Index:     s.emitted,
			Width:     b.Dx(),
			Height:    b.Dy(),
			Image:     img,
			Timestamp: time.Now(),
		}
		s.emitted++
		return f, nil
	}
}

// await blocks until a new matching file appears.
func (s *DirSource) await(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return io.EOF
			}
			if s.handle(ev) {
				return nil
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return io.EOF
			}
			logging.Get("frames").Error("watcher error", "error", err)
		}
	}
}

// handle queues a created or written file and reports whether the queue grew.
func (s *DirSource) handle(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	info, err := os.Lstat(ev.Name)
	if err != nil || info.Mode()&fs.ModeSymlink != 0 {
		return false
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) {
			_ = s.watcher.Add(ev.Name)
		}
		return false
	}
	if s.known[ev.Name] || !s.matches(ev.Name) {
		return false
	}
	s.known[ev.Name] = true
	s.files = append(s.files, ev.Name)
	return true
}

// Close stops following the directory.
func (s *DirSource) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	return img, nil
}
