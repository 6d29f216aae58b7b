package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// CachedListing is a listing snapshot kept for the new-listing notifier.
type CachedListing struct {
	ID          int64          `db:"id"`
	Kind        string         `db:"kind"`
	Title       string         `db:"title"`
	CompanyName string         `db:"company_name"`
	SalaryMin   *float64       `db:"salary_min"`
	SalaryMax   *float64       `db:"salary_max"`
	Currency    *string        `db:"currency"`
	Location    string         `db:"location"`
	Skills      pq.StringArray `db:"skills"`
	CreatedAt   *time.Time     `db:"created_at"`
	RawData     RawJSON        `db:"raw_data"`
	CachedAt    time.Time      `db:"cached_at"`
}

func NewCachedListing(l Listing) (CachedListing, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return CachedListing{}, err
	}
	c := CachedListing{
		ID:          l.ID,
		Kind:        string(l.Kind),
		Title:       l.Title,
		CompanyName: l.Company.Name,
		SalaryMin:   l.SalaryMin,
		SalaryMax:   l.SalaryMax,
		Location:    l.Location,
		Skills:      pq.StringArray(l.Skills),
		CreatedAt:   l.CreatedAt,
		RawData:     RawJSON(raw),
	}
	if l.Currency != "" {
		c.Currency = &l.Currency
	}
	return c, nil
}

type UserSeenListing struct {
	UserID    int64     `db:"user_id"`
	ListingID int64     `db:"listing_id"`
	SeenAt    time.Time `db:"seen_at"`
}

type RawJSON json.RawMessage

func (r RawJSON) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return []byte(r), nil
}

func (r *RawJSON) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*r = append(RawJSON(nil), v...)
	case string:
		*r = RawJSON(v)
	}
	return nil
}
