package redis

import (
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/quaykit/identity-service/internal/domain"
)

func isMissingField(err error, field string) bool {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code == "missing_field" && de.Meta != nil && de.Meta["field"] == field
	}
	return false
}

// newTestClient spins up a miniredis and a Client bound to it.
func newTestClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()

	m := miniredis.RunT(t)
	c := New(m.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return m, c
}
