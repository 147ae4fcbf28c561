// Package files loads form definition JSON files from a directory into a
// form store and keeps them fresh with a filesystem watch.
package files

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/gjson"

	"github.com/formflow/formflow-go/dsl"
	"github.com/formflow/formflow-go/form"
)

// DraftStore is the loader's write target.
type DraftStore interface {
	PutDraft(def *form.Definition) error
}

// Loader reads *.json form definitions from one directory.
type Loader struct {
	dir     string
	store   DraftStore
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// NewLoader creates a loader over dir.
func NewLoader(dir string, store DraftStore) (*Loader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("form directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("form directory %s is not a directory", dir)
	}
	return &Loader{dir: dir, store: store}, nil
}

// LoadAll parses every *.json file in the directory into the store. A file
// that fails to parse is reported and skipped so one bad definition does not
// take the rest down.
func (l *Loader) LoadAll() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("failed to read form directory: %w", err)
	}
	var failed []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(l.dir, entry.Name())
		if err := l.loadFile(path); err != nil {
			log.Printf("skipping form file %s: %v", path, err)
			failed = append(failed, entry.Name())
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to load %d form file(s): %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func (l *Loader) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return err
	}
	return l.store.PutDraft(def)
}

// ParseDefinition decodes a raw form definition. The raw JSON is
// pre-validated before decoding so structural problems get reported against
// the document rather than as type errors, and compact rule syntax is
// compiled into the declarative form.
func ParseDefinition(data []byte) (*form.Definition, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("definition is not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.Get("slug").Exists() {
		return nil, fmt.Errorf("definition is missing a slug")
	}
	if !doc.Get("pages").IsArray() {
		return nil, fmt.Errorf("definition %q has no pages array", doc.Get("slug").String())
	}

	def := &form.Definition{}
	if err := json.Unmarshal(data, def); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}

	if err := attachCompactRules(def, doc); err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// attachCompactRules walks the raw document for questions carrying a "rules"
// list of compact rule lines and compiles them. A question may use either
// "conditional_logic" or "rules", not both.
func attachCompactRules(def *form.Definition, doc gjson.Result) error {
	var compileErr error
	walk := func(qdoc gjson.Result) {
		rules := qdoc.Get("rules")
		if !rules.IsArray() || compileErr != nil {
			return
		}
		slug := qdoc.Get("slug").String()
		q := def.FindQuestion(slug)
		if q == nil {
			return
		}
		if q.Logic != nil {
			compileErr = fmt.Errorf("question %q declares both conditional_logic and rules", slug)
			return
		}
		var lines []string
		for _, line := range rules.Array() {
			lines = append(lines, line.String())
		}
		logic, err := dsl.ParseLogic(lines, qdoc.Get("default_action").String())
		if err != nil {
			compileErr = fmt.Errorf("question %q: %w", slug, err)
			return
		}
		q.Logic = logic
	}

	doc.Get("pages").ForEach(func(_, page gjson.Result) bool {
		page.Get("questions").ForEach(func(_, qdoc gjson.Result) bool {
			walk(qdoc)
			return compileErr == nil
		})
		page.Get("question_groups").ForEach(func(_, group gjson.Result) bool {
			group.Get("questions").ForEach(func(_, qdoc gjson.Result) bool {
				walk(qdoc)
				return compileErr == nil
			})
			return compileErr == nil
		})
		return compileErr == nil
	})
	return compileErr
}

// Watch reloads definitions when files in the directory change. Events are
// debounced per path since editors fire several writes per save.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}
	l.watcher = watcher

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	go l.watchLoop(ctx)
	return nil
}

func (l *Loader) watchLoop(ctx context.Context) {
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pending[event.Name] = time.Now()
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("form watcher error: %v", err)
		case now := <-ticker.C:
			for path, stamp := range pending {
				if now.Sub(stamp) < 200*time.Millisecond {
					continue
				}
				delete(pending, path)
				if err := l.loadFile(path); err != nil {
					log.Printf("reload of %s failed: %v", path, err)
				} else {
					log.Printf("reloaded form definition %s", path)
				}
			}
		}
	}
}

// Close stops the watch.
func (l *Loader) Close() error {
	if l.cancel != nil {
		l.cancel()
	}
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
