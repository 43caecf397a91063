package substack

import (
	"context"
	"strconv"
	"strings"

	"go-substack-watch/internal/logx"
)

// CategoryEntry is one (name, id) pair of the category listing.
type CategoryEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type categoryPage struct {
	Publications []PublicationRecord `json:"publications"`
	More         bool                `json:"more"`
}

// ListCategories fetches every category.
func ListCategories(ctx context.Context, opts Options) ([]CategoryEntry, error) {
	opts = opts.withDefaults()
	var out []CategoryEntry
	if err := opts.getJSON(ctx, opts.PlatformURL+"/api/v1/categories", "categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Category is a category known by name or by id; the other half is resolved
// from the listing. Members are cached until a forced refresh.
type Category struct {
	name    string
	id      int64
	hasName bool
	hasID   bool
	opts    Options

	members []PublicationRecord
	loaded  bool
}

func NewCategoryByName(name string, opts Options) *Category {
	return &Category{name: name, hasName: true, opts: opts.withDefaults()}
}

func NewCategoryByID(id int64, opts Options) *Category {
	return &Category{id: id, hasID: true, opts: opts.withDefaults()}
}

// Resolve fills in the missing name or id. A miss is a *NotFoundError.
func (c *Category) Resolve(ctx context.Context) error {
	if c.hasName && c.hasID {
		return nil
	}
	all, err := ListCategories(ctx, c.opts)
	if err != nil {
		return err
	}
	for _, e := range all {
		switch {
		case c.hasName && e.Name == c.name:
			c.id, c.hasID = e.ID, true
			return nil
		case c.hasID && e.ID == c.id:
			c.name, c.hasName = e.Name, true
			return nil
		}
	}
	if c.hasName {
		return &NotFoundError{Kind: "category", Key: c.name}
	}
	return &NotFoundError{Kind: "category", Key: strconv.FormatInt(c.id, 10)}
}

func (c *Category) Name(ctx context.Context) (string, error) {
	if err := c.Resolve(ctx); err != nil {
		return "", err
	}
	return c.name, nil
}

func (c *Category) ID(ctx context.Context) (int64, error) {
	if err := c.Resolve(ctx); err != nil {
		return 0, err
	}
	return c.id, nil
}

// Members crawls the category's public listing from page 0 while the server reports
// more pages, up to MaxCategoryPages pages. PageDelay is awaited after every page.
// The whole list is cached on success; a failed page fails the call.
func (c *Category) Members(ctx context.Context, force bool) ([]PublicationRecord, error) {
	if c.loaded && !force {
		return c.members, nil
	}
	id, err := c.ID(ctx)
	if err != nil {
		return nil, err
	}
	base := c.opts.PlatformURL + "/api/v1/category/public/" + strconv.FormatInt(id, 10) + "/all?page="

	var out []PublicationRecord
	page := 0
	for ; page < c.opts.MaxCategoryPages; page++ {
		var p categoryPage
		if err := c.opts.getJSON(ctx, base+strconv.Itoa(page), "category "+strconv.FormatInt(id, 10), &p); err != nil {
			return nil, err
		}
		out = append(out, p.Publications...)
		if err := c.opts.pause(ctx); err != nil {
			return nil, err
		}
		if !p.More {
			break
		}
	}
	if page == c.opts.MaxCategoryPages {
		logx.Debugf("category %d: stopped at the %d page bound", id, c.opts.MaxCategoryPages)
	}
	c.members, c.loaded = out, true
	return out, nil
}

// Newsletters turns the members into Newsletters sharing this category's options.
func (c *Category) Newsletters(ctx context.Context, force bool) ([]*Newsletter, error) {
	members, err := c.Members(ctx, force)
	if err != nil {
		return nil, err
	}
	out := make([]*Newsletter, 0, len(members))
	for _, m := range members {
		site := m.SiteURL()
		if strings.TrimSpace(site) == "" {
			continue
		}
		n, err := NewNewsletter(site, c.opts)
		if err != nil {
			logx.Debugf("category %d: skip %q: %v", c.id, site, err)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
