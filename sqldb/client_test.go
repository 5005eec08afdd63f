package sqldb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/mvv/core"
)

func TestClientDB(t *testing.T) {
	var ctx = context.Background()
	var c = newTestCoreDB(t)

	for _, client := range []*core.ClientInfo{
		{Email: "alice@example.com", FirstName: "Alice", LastName: "Smith", BirthDate: "1980-05-01"},
		{Email: "bob@example.com", FirstName: "Bob", LastName: "Smith_Jones"},
		{Phone: "0301234", FirstName: "Carol", LastName: "Jones", BusinessUser: true},
	} {
		require.NoError(t, c.InsertClient(ctx, clerk, client))
		assert.NotZero(t, client.ID)
	}

	got, err := c.Client(ctx, clerk, 1)
	require.NoError(t, err)
	assert.Equal(t, "1980-05-01", got.BirthDate)
	assert.True(t, got.Active)

	_, err = c.Client(ctx, clerk, 42)
	assert.ErrorIs(t, err, core.ErrNotFound)

	found, err := c.SearchClients(ctx, clerk, core.ClientFilter{Name: "smith"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	// underscore is not a wildcard
	found, err = c.SearchClients(ctx, clerk, core.ClientFilter{Name: "h_J"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Bob", found[0].FirstName)

	found, err = c.SearchClients(ctx, clerk, core.ClientFilter{Name: "Smith_"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = c.SearchClients(ctx, clerk, core.ClientFilter{Phone: "030-1234"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[0].BusinessUser)

	require.NoError(t, c.SetClientActive(ctx, clerk, 2, false))
	var inactive = false
	found, err = c.SearchClients(ctx, clerk, core.ClientFilter{Active: &inactive})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "bob@example.com", found[0].Email)

	found, err = c.SearchClients(ctx, clerk, core.ClientFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	got.LastName = "Miller"
	require.NoError(t, c.UpdateClient(ctx, clerk, got))
	got, err = c.Client(ctx, clerk, 1)
	require.NoError(t, err)
	assert.Equal(t, "Miller", got.LastName)
}
