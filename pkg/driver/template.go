package driver

import (
	"container/list"
	"fmt"
	"regexp"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// templateRef matches one `{stage.artifact}` placeholder in a stage's
// params, e.g. "{reduce.elements_core}".
var templateRef = regexp.MustCompile(`\{([a-zA-Z0-9_]+\.[a-zA-Z0-9_]+)\}`)

// programCache is a thread-safe LRU cache of compiled expr programs,
// grounded on mbflow's engine.ConditionCache: param templates repeat across
// recipes far more often than they vary, so compiling `reduce.elements_core`
// once per process is enough.
type programCache struct {
	capacity int
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
}

type programCacheEntry struct {
	key     string
	program *vm.Program
}

func newProgramCache(capacity int) *programCache {
	if capacity <= 0 {
		capacity = 64
	}
	return &programCache{capacity: capacity, entries: make(map[string]*list.Element), order: list.New()}
}

func (c *programCache) get(key string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*programCacheEntry).program, true
	}
	return nil, false
}

func (c *programCache) put(key string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*programCacheEntry).program = program
		return
	}
	el := c.order.PushFront(&programCacheEntry{key: key, program: program})
	c.entries[key] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*programCacheEntry).key)
		}
	}
}

// resolveParam expands every `{stage.artifact}` reference in raw against
// the run's accumulated artifact-path environment, compiling (and caching)
// one expr program per distinct reference.
func (c *programCache) resolveParam(raw string, env map[string]map[string]string) (string, error) {
	var resolveErr error
	out := templateRef.ReplaceAllStringFunc(raw, func(token string) string {
		if resolveErr != nil {
			return token
		}
		body := token[1 : len(token)-1] // strip { }
		exprBody := "env." + body

		program, ok := c.get(exprBody)
		if !ok {
			compiled, err := expr.Compile(exprBody, expr.Env(map[string]any{"env": env}))
			if err != nil {
				resolveErr = fmt.Errorf("driver: compile template %q: %w", token, err)
				return token
			}
			c.put(exprBody, compiled)
			program = compiled
		}

		result, err := expr.Run(program, map[string]any{"env": env})
		if err != nil {
			resolveErr = fmt.Errorf("driver: resolve template %q: %w", token, err)
			return token
		}
		path, ok := result.(string)
		if !ok {
			resolveErr = fmt.Errorf("driver: template %q did not resolve to a path", token)
			return token
		}
		return path
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return out, nil
}
