package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the identity the external API returns for the signed-in client.
type User struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

type Case struct {
	ID            string    `json:"_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Images        []string  `json:"images"`
	Active        bool      `json:"active"`
	TotalRatings  int       `json:"totalRatings"`
	AverageRating float64   `json:"averageRating"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CaseBrief is the populated form of a case reference: the API sends either
// the bare id or the case document in place of questionId.
type CaseBrief struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Rating struct {
	CaseID    string     `json:"questionId"`
	Case      *CaseBrief `json:"question,omitempty"`
	UserID    string     `json:"userId"`
	Score     int        `json:"rating"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (r *Rating) UnmarshalJSON(raw []byte) error {
	type plain Rating
	var aux struct {
		plain
		CaseID json.RawMessage `json:"questionId"`
		UserID json.RawMessage `json:"userId"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return err
	}
	*r = Rating(aux.plain)
	var err error
	if r.CaseID, r.Case, err = decodeRef(aux.CaseID); err != nil {
		return fmt.Errorf("questionId: %w", err)
	}
	if r.UserID, _, err = decodeRef(aux.UserID); err != nil {
		return fmt.Errorf("userId: %w", err)
	}
	return nil
}

type RatingSummary struct {
	CaseID    string    `json:"questionId"`
	Title     string    `json:"title,omitempty"`
	Score     int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *RatingSummary) UnmarshalJSON(raw []byte) error {
	type plain RatingSummary
	var aux struct {
		plain
		CaseID json.RawMessage `json:"questionId"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return err
	}
	*r = RatingSummary(aux.plain)
	id, brief, err := decodeRef(aux.CaseID)
	if err != nil {
		return fmt.Errorf("questionId: %w", err)
	}
	r.CaseID = id
	if brief != nil && r.Title == "" {
		r.Title = brief.Title
	}
	return nil
}

// Member is a platform user as seen from the admin directory.
type Member struct {
	ID        string          `json:"_id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Role      Role            `json:"role"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"createdAt"`
	LastLogin *time.Time      `json:"lastLogin,omitempty"`
	Ratings   []RatingSummary `json:"ratings,omitempty"`
}

type Activity struct {
	ID        string    `json:"_id"`
	Action    string    `json:"action"`
	CaseID    string    `json:"questionId,omitempty"`
	Score     int       `json:"rating,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a *Activity) UnmarshalJSON(raw []byte) error {
	type plain Activity
	var aux struct {
		plain
		CaseID json.RawMessage `json:"questionId"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return err
	}
	*a = Activity(aux.plain)
	id, _, err := decodeRef(aux.CaseID)
	if err != nil {
		return fmt.Errorf("questionId: %w", err)
	}
	a.CaseID = id
	return nil
}

type CaseStats struct {
	TotalQuestions  int     `json:"totalQuestions"`
	ActiveQuestions int     `json:"activeQuestions"`
	TotalRatings    int     `json:"totalRatings"`
	AverageRating   float64 `json:"averageRating"`
}

type RatingStats struct {
	TotalRatings  int            `json:"totalRatings"`
	AverageRating float64        `json:"averageRating"`
	Distribution  map[string]int `json:"distribution,omitempty"`
}

type UserStats struct {
	TotalUsers  int `json:"totalUsers"`
	ActiveUsers int `json:"activeUsers"`
	AdminUsers  int `json:"adminUsers"`
}

type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

type CaseFilters struct {
	Search    string `json:"search"`
	Status    string `json:"status"`
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
}

func DefaultCaseFilters() CaseFilters {
	return CaseFilters{Status: "all", SortBy: "createdAt", SortOrder: "desc"}
}

type CasePage struct {
	Questions   []Case `json:"questions"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	TotalItems  int    `json:"totalItems"`
}

// decodeRef reads a reference that is either an id string or a populated
// document carrying _id. Absent and null references decode to "".
func decodeRef(raw json.RawMessage) (string, *CaseBrief, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil, nil
	}
	if raw[0] == '"' {
		var id string
		err := json.Unmarshal(raw, &id)
		return id, nil, err
	}
	var doc CaseBrief
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", nil, err
	}
	if doc.ID == "" {
		return "", nil, fmt.Errorf("populated reference without _id")
	}
	return doc.ID, &doc, nil
}
