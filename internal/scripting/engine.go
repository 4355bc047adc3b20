package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrNotDefined is returned when a script does not define the called
// function. Callers fall back to their built-in behaviour.
var ErrNotDefined = errors.New("lua function not defined")

// Engine wraps a single gopher-lua VM holding rule overrides.
// A lua.LState is not goroutine safe; calls are serialized by mu because
// rules are consulted from the task workers.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	if err := e.loadDir(filepath.Join(scriptsDir, "rules")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load rules scripts: %w", err)
	}

	return e, nil
}

// NewEngineFromString builds an engine from inline source.
func NewEngineFromString(source string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	if err := vm.DoString(source); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return &Engine{vm: vm, log: log}, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Defines reports whether the scripts define a global function named name.
func (e *Engine) Defines(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// call invokes name with string arguments and returns its single result.
// Caller must hold mu.
func (e *Engine) call(name string, args ...string) (lua.LValue, error) {
	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return lua.LNil, ErrNotDefined
	}

	lArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lArgs[i] = lua.LString(a)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lArgs...); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return lua.LNil, fmt.Errorf("call %s: %w", name, err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return result, nil
}

// CallInt calls a Lua function with string args and returns an int result.
func (e *Engine) CallInt(name string, args ...string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.call(name, args...)
	if err != nil {
		return 0, err
	}
	n, ok := result.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("call %s: expected number, got %s", name, result.Type())
	}
	return int64(n), nil
}

// CallBool calls a Lua function with string args and returns a boolean result.
func (e *Engine) CallBool(name string, args ...string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.call(name, args...)
	if err != nil {
		return false, err
	}
	return lua.LVAsBool(result), nil
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
