package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/thomas/mayhem-terminal-go/internal/catalog"
)

// DefaultPageSize is the number of rows per admin list page.
const DefaultPageSize = 10

// ErrUnknownEntity is returned for an entity missing from the registry.
var ErrUnknownEntity = errors.New("unknown entity")

// Row is one table row as decoded JSON.
type Row map[string]any

// ID returns the row's id as a string.
func (r Row) ID() string {
	return FormatCell(r["id"])
}

// Page is one page of a list.
type Page struct {
	Rows     []Row
	Total    int
	Page     int
	PageSize int
}

// PageCount returns the number of pages, at least 1.
func (p Page) PageCount() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// Store is the generic table API of the Catalog Store.
type Store interface {
	Select(ctx context.Context, table string, q catalog.Query, out any) (int, error)
	Insert(ctx context.Context, table string, payload, out any) error
	Update(ctx context.Context, table, id string, payload, out any) error
	Delete(ctx context.Context, table, id string) error
}

// Authorizer returns the admin email of a valid session or an error.
type Authorizer interface {
	Require(ctx context.Context) (string, error)
}

// Service runs admin operations for one shopper session.
type Service struct {
	store    Store
	auth     Authorizer
	onChange func()
	logger   *log.Logger
	pageSize int
}

// NewService returns a Service. onChange runs after every successful
// mutation; the storefront uses it to drop cached catalog reads.
func NewService(store Store, auth Authorizer, onChange func(), logger *log.Logger) *Service {
	if onChange == nil {
		onChange = func() {}
	}
	return &Service{
		store:    store,
		auth:     auth,
		onChange: onChange,
		logger:   logger,
		pageSize: DefaultPageSize,
	}
}

func (s *Service) authorize(ctx context.Context, name string) (EntitySpec, string, error) {
	email, err := s.auth.Require(ctx)
	if err != nil {
		return EntitySpec{}, "", err
	}
	entity, ok := Lookup(name)
	if !ok {
		return EntitySpec{}, "", fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return entity, email, nil
}

// List returns page (1-based) of entity rows, optionally filtered by a
// case-insensitive search on the entity's search column.
func (s *Service) List(ctx context.Context, name string, page int, search string) (Page, error) {
	entity, _, err := s.authorize(ctx, name)
	if err != nil {
		return Page{}, err
	}
	if page < 1 {
		page = 1
	}

	q := catalog.Query{
		Order:  "id.asc",
		Limit:  s.pageSize,
		Offset: (page - 1) * s.pageSize,
		Count:  true,
	}
	if search = strings.TrimSpace(search); search != "" {
		q.Search = search
		q.SearchColumn = entity.SearchColumn
	}

	var rows []Row
	total, err := s.store.Select(ctx, entity.Table, q, &rows)
	if err != nil {
		return Page{}, err
	}
	if total < 0 {
		total = len(rows)
	}
	return Page{Rows: rows, Total: total, Page: page, PageSize: s.pageSize}, nil
}

// Create inserts a row built from form values.
func (s *Service) Create(ctx context.Context, name string, values map[string]string) (Row, error) {
	entity, email, err := s.authorize(ctx, name)
	if err != nil {
		return nil, err
	}
	payload, err := ParseForm(entity, values)
	if err != nil {
		return nil, err
	}

	var created Row
	if err := s.store.Insert(ctx, entity.Table, payload, &created); err != nil {
		return nil, err
	}
	s.changed("created", entity, created.ID(), email)
	return created, nil
}

// Update patches row id with form values.
func (s *Service) Update(ctx context.Context, name, id string, values map[string]string) (Row, error) {
	entity, email, err := s.authorize(ctx, name)
	if err != nil {
		return nil, err
	}
	payload, err := ParseForm(entity, values)
	if err != nil {
		return nil, err
	}

	var updated Row
	if err := s.store.Update(ctx, entity.Table, id, payload, &updated); err != nil {
		return nil, err
	}
	s.changed("updated", entity, id, email)
	return updated, nil
}

// Delete removes row id.
func (s *Service) Delete(ctx context.Context, name, id string) error {
	entity, email, err := s.authorize(ctx, name)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, entity.Table, id); err != nil {
		return err
	}
	s.changed("deleted", entity, id, email)
	return nil
}

func (s *Service) changed(action string, entity EntitySpec, id, email string) {
	s.onChange()
	s.logger.Info("admin "+action, "table", entity.Table, "id", id, "by", email)
}
