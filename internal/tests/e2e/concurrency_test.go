//go:build e2e

package e2e

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetAdmins demotes every Admin so a test controls the whole Admin population.
func resetAdmins(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := db.ExecContext(ctx, "UPDATE users SET role = 'member' WHERE role = 'admin'")
	require.NoError(t, err)
}

func countAdmins(t *testing.T) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&n))
	return n
}

// loginAdmin registers a user, promotes it and returns its logged in client.
func loginAdmin(t *testing.T, prefix string) (*client, int) {
	t.Helper()
	email := uniqueEmail(prefix)
	c := newClient(t)
	id := c.register(email)
	promote(t, id, "admin")
	c.login(email)
	require.Equal(t, "admin", c.role())
	return c, id
}

func TestConcurrentCrossDemotionKeepsOneAdmin(t *testing.T) {
	for round := 0; round < 6; round++ {
		bulk := round%2 == 1

		resetAdmins(t)
		a, aID := loginAdmin(t, "race_a")
		b, bID := loginAdmin(t, "race_b")
		require.Equal(t, 2, countAdmins(t))

		demote := func(c *client, target int) int {
			if bulk {
				return c.do(http.MethodPost, "/api/permissions/users/bulk", map[string]any{
					"changes": []map[string]any{{"id": target, "role": "member"}},
				}, nil)
			}
			return c.do(http.MethodPut, pathf("/api/permissions/users/%d/role", target), map[string]string{"role": "member"}, nil)
		}

		var (
			wg       sync.WaitGroup
			start    = make(chan struct{})
			statuses = make([]int, 2)
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			statuses[0] = demote(a, bID)
		}()
		go func() {
			defer wg.Done()
			<-start
			statuses[1] = demote(b, aID)
		}()
		close(start)
		wg.Wait()

		succeeded := 0
		for _, status := range statuses {
			if status == http.StatusOK {
				succeeded++
				continue
			}
			// The loser either waited on the row lock and saw one Admin left,
			// or arrived after the change and no longer passes the gate.
			assert.Contains(t, []int{http.StatusBadRequest, http.StatusForbidden}, status, "round %d", round)
		}
		assert.Equal(t, 1, succeeded, "round %d bulk=%v statuses=%v", round, bulk, statuses)
		assert.Equal(t, 1, countAdmins(t), "round %d", round)
	}
}
