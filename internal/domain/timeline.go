package domain

import "time"

// TimelineEvent описывает событие в жизненном цикле бронирования.
// Записывается начиная с точки невозврата (подтверждённой записи),
// поэтому всегда привязан к существующему бронированию.
type TimelineEvent struct {
	ReservationID string
	Type          string
	Reason        string
	Occurred      time.Time
}
