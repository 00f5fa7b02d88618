package scenario

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/cruisesim/log"
)

// ParseCommand decodes a command from yaml (or json).
func ParseCommand(data []byte) (Command, error) {
	c := Command{}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse command: %w", err)
	}
	if c.Cruise == nil && c.Grade == nil {
		return c, fmt.Errorf("command changes nothing")
	}
	return c, c.Validate()
}

// WatchControlFile emits the content of path as Command every time the file is
// written. The directory is watched so editors replacing the file are covered.
// The returned channel is closed when ctx is done.
func WatchControlFile(ctx context.Context, path string) (<-chan Command, error) {
	l := log.GetFromContext(ctx).Named("scenario.control")
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("could not watch %s: %w", abs, err)
	}
	out := make(chan Command)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				l.Debug("context done, stopping control file watch")
				return
			case event, ok := <-watcher.Events:
				if !ok {
					l.Info("watcher events channel closed, stopping control file watch")
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cmd, err := readCommand(abs)
				if err != nil {
					l.Warn("ignoring control file content",
						log.String("file", abs), log.ErrorField(err))
					continue
				}
				l.Info("control file changed", log.String("command", cmd.String()))
				select {
				case out <- cmd:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.Error("watcher error", log.ErrorField(err))
			}
		}
	}()
	return out, nil
}

func readCommand(path string) (Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Command{}, err
	}
	return ParseCommand(data)
}
