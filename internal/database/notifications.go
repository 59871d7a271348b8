package database

import (
	"database/sql"
	"fmt"
	"time"
)

// NotificationType distinguishes what staff are being told about.
type NotificationType string

const (
	NotificationNewBooking      NotificationType = "new_booking"
	NotificationBookingApproved NotificationType = "booking_approved"
	NotificationBookingRejected NotificationType = "booking_rejected"
	NotificationSystem          NotificationType = "system"
)

// Notification is one entry in the staff dashboard feed.
type Notification struct {
	ID        int64            `json:"id"`
	Type      NotificationType `json:"type"`
	BookingID string           `json:"booking_id,omitempty"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// AddNotification appends an entry to the staff feed.
func (db *DB) AddNotification(typ NotificationType, bookingID, message string) (int64, error) {
	res, err := db.conn.Exec(
		`INSERT INTO notifications (type, booking_id, message) VALUES (?, ?, ?)`,
		string(typ), bookingID, message)
	if err != nil {
		return 0, fmt.Errorf("adding notification: %w", err)
	}
	return res.LastInsertId()
}

// Notifications returns the most recent entries, newest first.
func (db *DB) Notifications(limit int, unreadOnly bool) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, type, booking_id, message, read, created_at FROM notifications`
	if unreadOnly {
		query += ` WHERE read = 0`
	}
	query += ` ORDER BY id DESC LIMIT ?`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags a single entry as seen.
func (db *DB) MarkNotificationRead(id int64) error {
	res, err := db.conn.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking notification %d read: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("notification %d not found", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(s scanner) (Notification, error) {
	var n Notification
	var typ string
	var read int
	var bookingID sql.NullString
	if err := s.Scan(&n.ID, &typ, &bookingID, &n.Message, &read, &n.CreatedAt); err != nil {
		return Notification{}, fmt.Errorf("scanning notification: %w", err)
	}
	n.Type = NotificationType(typ)
	n.BookingID = bookingID.String
	n.Read = read != 0
	return n, nil
}
