// Package route builds and parses the edit-view routes that carry an
// employee id.
package route

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/quiby-ai/staffdesk/pkg/employee"
)

const (
	List         = "/employees"
	EditTemplate = List + "/{id}/edit"
)

var (
	ErrIDRequired = errors.New("employee id is required")
	ErrIDInvalid  = errors.New("employee id may only contain letters, digits, '-' and '_'")
	ErrNotEdit    = errors.New("not an employee edit route")
)

var idRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Edit returns the edit route for id. employee.NewID yields the create view.
func Edit(id string) (string, error) {
	id = strings.TrimSpace(id)
	if err := checkID(id); err != nil {
		return "", err
	}
	return strings.NewReplacer("{id}", url.PathEscape(id)).Replace(EditTemplate), nil
}

// ID extracts the record id from a bare id, an edit route such as
// /employees/7/edit, a record path such as /employees/7, or a full URL
// ending in either.
func ID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrIDRequired
	}
	if !strings.Contains(s, "/") {
		return s, checkID(s)
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", errors.Join(ErrNotEdit, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if n := len(parts); n > 0 && parts[n-1] == "edit" {
		parts = parts[:n-1]
	}
	if len(parts) < 2 || "/"+parts[len(parts)-2] != List {
		return "", ErrNotEdit
	}
	id := parts[len(parts)-1]
	return id, checkID(id)
}

// IDOrNew is ID with an empty input meaning a new record.
func IDOrNew(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return employee.NewID, nil
	}
	return ID(s)
}

func checkID(id string) error {
	if id == "" {
		return ErrIDRequired
	}
	if !idRegex.MatchString(id) {
		return ErrIDInvalid
	}
	return nil
}
