package core

import (
	"fmt"
	"strings"
)

// Category is a node of the spending category tree. Parents are referenced
// by ID.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	ParentID    string `json:"parent_id,omitempty"`
	IsActive    bool   `json:"is_active"`
	BudgetLimit *Money `json:"budget_limit,omitempty"`
}

func (c Category) Validate() error {
	switch {
	case strings.TrimSpace(c.ID) == "":
		return fmt.Errorf("%w: empty id", ErrInvalidCategory)
	case strings.TrimSpace(c.Name) == "":
		return fmt.Errorf("%w %s: empty name", ErrInvalidCategory, c.ID)
	case strings.TrimSpace(c.Color) == "":
		return fmt.Errorf("%w %s: empty color", ErrInvalidCategory, c.ID)
	case strings.TrimSpace(c.Icon) == "":
		return fmt.Errorf("%w %s: empty icon", ErrInvalidCategory, c.ID)
	case c.ParentID == c.ID:
		return fmt.Errorf("%w %s: parent is itself", ErrCategoryCycle, c.ID)
	}
	if c.BudgetLimit != nil {
		if err := c.BudgetLimit.Validate(); err != nil {
			return fmt.Errorf("%w %s: budget limit: %v", ErrInvalidCategory, c.ID, err)
		}
	}
	return nil
}

// CategoryTree is an arena of categories indexed by ID. It is read-only
// after construction and safe for concurrent use.
type CategoryTree struct {
	byID     map[string]Category
	order    []string
	children map[string][]string
}

// NewCategoryTree validates every category, rejects duplicate IDs and
// unknown parents, and verifies the parent graph is acyclic.
func NewCategoryTree(categories []Category) (*CategoryTree, error) {
	t := &CategoryTree{
		byID:     make(map[string]Category, len(categories)),
		order:    make([]string, 0, len(categories)),
		children: make(map[string][]string),
	}
	for _, c := range categories {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t.byID[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidCategory, c.ID)
		}
		t.byID[c.ID] = c
		t.order = append(t.order, c.ID)
	}
	for _, id := range t.order {
		c := t.byID[id]
		if c.ParentID == "" {
			continue
		}
		if _, ok := t.byID[c.ParentID]; !ok {
			return nil, fmt.Errorf("%w: parent %s of %s", ErrCategoryNotFound, c.ParentID, c.ID)
		}
		t.children[c.ParentID] = append(t.children[c.ParentID], c.ID)
	}
	for _, id := range t.order {
		steps := 0
		for cur := t.byID[id].ParentID; cur != ""; cur = t.byID[cur].ParentID {
			steps++
			if cur == id || steps > len(t.order) {
				return nil, fmt.Errorf("%w: at %s", ErrCategoryCycle, id)
			}
		}
	}
	return t, nil
}

func (t *CategoryTree) Len() int { return len(t.order) }

func (t *CategoryTree) Get(id string) (Category, bool) {
	if t == nil {
		return Category{}, false
	}
	c, ok := t.byID[id]
	return c, ok
}

// FindByName looks a category up by case-insensitive name.
func (t *CategoryTree) FindByName(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, id := range t.order {
		if c := t.byID[id]; strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Category{}, false
}

// Resolve accepts either an ID or a name.
func (t *CategoryTree) Resolve(ref string) (Category, bool) {
	if c, ok := t.Get(ref); ok {
		return c, true
	}
	return t.FindByName(ref)
}

// All returns categories in construction order.
func (t *CategoryTree) All() []Category {
	out := make([]Category, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}

func (t *CategoryTree) Active() []Category {
	out := make([]Category, 0, len(t.order))
	for _, id := range t.order {
		if c := t.byID[id]; c.IsActive {
			out = append(out, c)
		}
	}
	return out
}

// IsWithin reports whether id equals ancestor or is one of its descendants.
func (t *CategoryTree) IsWithin(id, ancestor string) bool {
	if t == nil {
		return id != "" && id == ancestor
	}
	if id == "" || ancestor == "" {
		return false
	}
	for cur := id; cur != ""; cur = t.byID[cur].ParentID {
		if cur == ancestor {
			return true
		}
		if _, ok := t.byID[cur]; !ok {
			return false
		}
	}
	return false
}

// Descendants returns the IDs below id, depth first.
func (t *CategoryTree) Descendants(id string) []string {
	var out []string
	var walk func(string)
	walk = func(p string) {
		for _, c := range t.children[p] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// Path returns the names from the root down to id joined with " > ".
func (t *CategoryTree) Path(id string) string {
	var names []string
	for cur := id; cur != ""; cur = t.byID[cur].ParentID {
		c, ok := t.byID[cur]
		if !ok {
			break
		}
		names = append([]string{c.Name}, names...)
	}
	return strings.Join(names, " > ")
}
