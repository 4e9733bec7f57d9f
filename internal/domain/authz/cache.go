package authz

import (
	"context"
	"sync"
)

// CachedLocator memoizes successful lookups for the lifetime of a single
// request so a handler that checks access and then loads the same chain does
// not hit the store twice. Failures are not cached; neither is the HR
// department lookup result across requests, since that gate is evaluated
// live. Construct one per request.
type CachedLocator struct {
	inner Locator

	mu        sync.Mutex
	employees map[string]Ownership
	resources map[string]Ownership
	depts     map[string]Department
	deptNames map[string]string
}

// RequestEngine builds an engine over a fresh per-request cache.
func RequestEngine(loc Locator) *Engine {
	return NewEngine(NewCachedLocator(loc))
}

func NewCachedLocator(inner Locator) *CachedLocator {
	return &CachedLocator{
		inner:     inner,
		employees: map[string]Ownership{},
		resources: map[string]Ownership{},
		depts:     map[string]Department{},
		deptNames: map[string]string{},
	}
}

func (c *CachedLocator) Employee(ctx context.Context, ref string) (Ownership, error) {
	c.mu.Lock()
	if own, ok := c.employees[ref]; ok {
		c.mu.Unlock()
		return own, nil
	}
	c.mu.Unlock()

	own, err := c.inner.Employee(ctx, ref)
	if err != nil {
		return Ownership{}, err
	}
	c.mu.Lock()
	c.employees[ref] = own
	c.employees[own.EmployeeID] = own
	c.mu.Unlock()
	return own, nil
}

func (c *CachedLocator) Resource(ctx context.Context, kind ResourceKind, id string) (Ownership, error) {
	key := string(kind) + ":" + id
	c.mu.Lock()
	if own, ok := c.resources[key]; ok {
		c.mu.Unlock()
		return own, nil
	}
	c.mu.Unlock()

	own, err := c.inner.Resource(ctx, kind, id)
	if err != nil {
		return Ownership{}, err
	}
	c.mu.Lock()
	c.resources[key] = own
	c.mu.Unlock()
	return own, nil
}

func (c *CachedLocator) Department(ctx context.Context, ref string) (Department, error) {
	c.mu.Lock()
	if dept, ok := c.depts[ref]; ok {
		c.mu.Unlock()
		return dept, nil
	}
	c.mu.Unlock()

	dept, err := c.inner.Department(ctx, ref)
	if err != nil {
		return Department{}, err
	}
	c.mu.Lock()
	c.depts[ref] = dept
	c.mu.Unlock()
	return dept, nil
}

func (c *CachedLocator) DepartmentNamed(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	if id, ok := c.deptNames[name]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	id, err := c.inner.DepartmentNamed(ctx, name)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.deptNames[name] = id
	c.mu.Unlock()
	return id, nil
}
