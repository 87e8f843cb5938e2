// Package objclass hosts named classes of methods that run against a
// single stored object.
package objclass

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/store"
)

type Flag uint8

const (
	FlagRD Flag = 1 << iota
	FlagWR
	FlagPromote

	FlagRDWR = FlagRD | FlagWR
)

func (f Flag) String() string {
	switch {
	case f&FlagRDWR == FlagRDWR:
		return "rdwr"
	case f&FlagWR != 0:
		return "wr"
	case f&FlagRD != 0:
		return "rd"
	}
	return "none"
}

// Handler runs one method call. in is the raw request record, the returned
// bytes become the reply output. Any error aborts the call and nothing the
// handler wrote is kept.
type Handler func(ctx context.Context, obj store.Object, in []byte) ([]byte, error)

type Method struct {
	Name    string
	Flags   Flag
	Handler Handler
}

// Writes reports whether the method may mutate the object.
func (m *Method) Writes() bool {
	return m.Flags&(FlagWR|FlagPromote) != 0
}

// Call runs the method against oid inside one store transaction. Methods
// that do not write see a missing object as ErrNotFound before they run.
func (m *Method) Call(ctx context.Context, s *store.Store, oid string, in []byte) ([]byte, error) {
	var out []byte
	run := func(obj store.Object) (err error) {
		out, err = m.Handler(ctx, obj, in)
		return err
	}
	if m.Writes() {
		if err := s.Update(ctx, oid, run); err != nil {
			return nil, err
		}
		return out, nil
	}

	err := s.View(ctx, oid, func(obj store.Object) error {
		if _, err := obj.Stat(); err != nil {
			return err
		}
		return run(obj)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type Class struct {
	Name    string
	methods map[string]*Method
}

func NewClass(name string) *Class {
	return &Class{Name: name, methods: make(map[string]*Method)}
}

// Register adds a method. Registering the same name twice panics.
func (c *Class) Register(name string, flags Flag, h Handler) *Class {
	if _, ok := c.methods[name]; ok {
		panic(fmt.Sprintf("method %s.%s registered twice", c.Name, name))
	}
	c.methods[name] = &Method{Name: name, Flags: flags, Handler: h}
	return c
}

func (c *Class) Method(name string) (*Method, bool) {
	m, ok := c.methods[name]
	return m, ok
}

func (c *Class) Methods() []string {
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Registry struct {
	lock    sync.RWMutex
	classes map[string]*Class
}

func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class)}
}

func (r *Registry) Add(classes ...*Class) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, c := range classes {
		if _, ok := r.classes[c.Name]; ok {
			return &apierrors.Error{Code: apierrors.CodeAlreadyExists, Msg: fmt.Sprintf("class %s already registered", c.Name)}
		}
	}
	for _, c := range classes {
		r.classes[c.Name] = c
	}
	return nil
}

func (r *Registry) Lookup(class, method string) (*Method, error) {
	r.lock.RLock()
	c, ok := r.classes[class]
	r.lock.RUnlock()
	if !ok {
		return nil, apierrors.ErrUnknownClass
	}
	m, ok := c.Method(method)
	if !ok {
		return nil, apierrors.ErrUnknownMethod
	}
	return m, nil
}

func (r *Registry) Classes() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
