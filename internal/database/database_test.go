package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkProcessed(t *testing.T) {
	db := NewTestDB(t)

	fresh, err := db.MarkProcessed("wamid.abc")
	require.NoError(t, err)
	assert.True(t, fresh, "first sighting should be fresh")

	fresh, err = db.MarkProcessed("wamid.abc")
	require.NoError(t, err)
	assert.False(t, fresh, "redelivery should be flagged")

	fresh, err = db.MarkProcessed("wamid.def")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestNotifications(t *testing.T) {
	db := NewTestDB(t)

	id1, err := db.AddNotification(NotificationNewBooking, "BK123456", "New booking BK123456 from Tashi")
	require.NoError(t, err)
	_, err = db.AddNotification(NotificationBookingApproved, "BK123456", "Booking BK123456 approved")
	require.NoError(t, err)

	t.Run("newest first", func(t *testing.T) {
		all, err := db.Notifications(10, false)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, NotificationBookingApproved, all[0].Type)
		assert.Equal(t, "BK123456", all[0].BookingID)
	})

	t.Run("mark read filters unread list", func(t *testing.T) {
		require.NoError(t, db.MarkNotificationRead(id1))

		unread, err := db.Notifications(10, true)
		require.NoError(t, err)
		require.Len(t, unread, 1)
		assert.Equal(t, NotificationBookingApproved, unread[0].Type)
	})

	t.Run("mark read unknown id", func(t *testing.T) {
		assert.Error(t, db.MarkNotificationRead(9999))
	})
}

func TestPruneProcessed(t *testing.T) {
	db := NewTestDB(t)

	_, err := db.MarkProcessed("wamid.recent")
	require.NoError(t, err)

	// Nothing is old enough to prune.
	n, err := db.PruneProcessed(7)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Backdate the record and prune again.
	_, err = db.conn.Exec(`UPDATE processed_messages SET processed_at = datetime('now', '-30 days')`)
	require.NoError(t, err)

	n, err = db.PruneProcessed(7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
