// Package rating stores employee ratings and reviews of beverages.
package rating

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	anonymousName   = "Anonymous"
	defaultTopLimit = 10
	statsTopLimit   = 5
)

type UpsertRequest struct {
	BeverageID  uint    `json:"beverage_id" validate:"required"`
	Rating      int     `json:"rating" validate:"required,min=1,max=5"`
	Review      *string `json:"review" validate:"omitempty,max=500"`
	IsAnonymous bool    `json:"is_anonymous"`
}

// View is a rating as shown to other users. Anonymous ratings carry no
// employee.
type View struct {
	ID          uint                `json:"id"`
	BeverageID  uint                `json:"beverage_id"`
	Beverage    *models.BeverageRef `json:"beverage,omitempty"`
	Employee    *models.UserRef     `json:"employee"`
	AuthorName  string              `json:"author_name"`
	Rating      int                 `json:"rating"`
	Review      *string             `json:"review"`
	IsAnonymous bool                `json:"is_anonymous"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func NewView(r *models.Rating) View {
	v := View{
		ID:          r.ID,
		BeverageID:  r.BeverageID,
		Beverage:    r.Beverage.Ref(),
		Rating:      r.Rating,
		Review:      r.Review,
		IsAnonymous: r.IsAnonymous,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.IsAnonymous {
		v.AuthorName = anonymousName
	} else if r.Employee != nil {
		v.Employee = r.Employee.Ref()
		v.AuthorName = r.Employee.FullName
	}
	return v
}

type UpsertResult struct {
	Rating        *models.Rating `json:"rating"`
	AverageRating float64        `json:"average_rating"`
	TotalRatings  int64          `json:"total_ratings"`
}

type BeverageRatings struct {
	Beverage      *models.Beverage `json:"beverage"`
	Ratings       []View           `json:"ratings"`
	AverageRating float64          `json:"average_rating"`
	TotalRatings  int64            `json:"total_ratings"`
	Distribution  map[int]int64    `json:"distribution"`
}

type UserRating struct {
	Rating int     `json:"rating"`
	Review *string `json:"review"`
}

type Details struct {
	models.Beverage
	AverageRating float64     `json:"average_rating"`
	TotalRatings  int64       `json:"total_ratings"`
	UserRating    *UserRating `json:"user_rating"`
}

type TopRated struct {
	Beverage      models.BeverageRef `json:"beverage"`
	AverageRating float64            `json:"average_rating"`
	TotalRatings  int64              `json:"total_ratings"`
}

type Statistics struct {
	repository.RatingStats
	RatedBeverages int        `json:"rated_beverages"`
	TopRated       []TopRated `json:"top_rated_beverages"`
}

type Service struct {
	store *repository.Store
	log   logrus.FieldLogger
}

func NewService(store *repository.Store, log logrus.FieldLogger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) beverage(ctx context.Context, id uint) (*models.Beverage, error) {
	b, err := s.store.Beverages.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("Beverage not found")
	}
	return b, err
}

// Upsert creates the caller's rating for a beverage or overwrites the one
// they gave before.
func (s *Service) Upsert(ctx context.Context, employeeID uint, req UpsertRequest) (*UpsertResult, error) {
	if req.Rating < models.MinRating || req.Rating > models.MaxRating {
		return nil, apperror.Validation("Rating must be between 1 and 5")
	}
	if _, err := s.beverage(ctx, req.BeverageID); err != nil {
		return nil, err
	}
	r := &models.Rating{
		EmployeeID:  employeeID,
		BeverageID:  req.BeverageID,
		Rating:      req.Rating,
		Review:      trimmed(req.Review),
		IsAnonymous: req.IsAnonymous,
	}
	if err := s.store.Ratings.Upsert(ctx, r); err != nil {
		return nil, err
	}
	agg, err := s.store.Ratings.Aggregate(ctx, req.BeverageID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"employee_id": employeeID, "beverage_id": req.BeverageID, "rating": req.Rating}).Info("rating saved")
	return &UpsertResult{Rating: r, AverageRating: round1(agg.Average), TotalRatings: agg.Count}, nil
}

func (s *Service) Mine(ctx context.Context, employeeID uint) ([]View, error) {
	list, err := s.store.Ratings.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(list))
	for i := range list {
		out = append(out, NewView(&list[i]))
	}
	return out, nil
}

// Find returns the caller's rating of a beverage, or nil.
func (s *Service) Find(ctx context.Context, employeeID, beverageID uint) (*models.Rating, error) {
	r, err := s.store.Ratings.Find(ctx, employeeID, beverageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return r, err
}

func (s *Service) ForBeverage(ctx context.Context, beverageID uint) (*BeverageRatings, error) {
	b, err := s.beverage(ctx, beverageID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.Ratings.ListByBeverage(ctx, beverageID)
	if err != nil {
		return nil, err
	}
	agg, err := s.store.Ratings.Aggregate(ctx, beverageID)
	if err != nil {
		return nil, err
	}
	dist, err := s.store.Ratings.Distribution(ctx, beverageID)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(list))
	for i := range list {
		views = append(views, NewView(&list[i]))
	}
	return &BeverageRatings{
		Beverage:      b,
		Ratings:       views,
		AverageRating: round1(agg.Average),
		TotalRatings:  agg.Count,
		Distribution:  dist,
	}, nil
}

// Details returns the beverage with its rating summary and the caller's own
// rating when there is one.
func (s *Service) Details(ctx context.Context, beverageID, employeeID uint) (*Details, error) {
	b, err := s.beverage(ctx, beverageID)
	if err != nil {
		return nil, err
	}
	agg, err := s.store.Ratings.Aggregate(ctx, beverageID)
	if err != nil {
		return nil, err
	}
	d := &Details{Beverage: *b, AverageRating: round1(agg.Average), TotalRatings: agg.Count}
	mine, err := s.Find(ctx, employeeID, beverageID)
	if err != nil {
		return nil, err
	}
	if mine != nil {
		d.UserRating = &UserRating{Rating: mine.Rating, Review: mine.Review}
	}
	return d, nil
}

// Delete removes the caller's rating and returns the beverage's new summary.
func (s *Service) Delete(ctx context.Context, employeeID, beverageID uint) (*repository.RatingAggregate, error) {
	ok, err := s.store.Ratings.Delete(ctx, employeeID, beverageID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NotFound("Rating not found")
	}
	agg, err := s.store.Ratings.Aggregate(ctx, beverageID)
	if err != nil {
		return nil, err
	}
	agg.Average = round1(agg.Average)
	return &agg, nil
}

// TopRated ranks beverages with enough ratings by average, then count.
func (s *Service) TopRated(ctx context.Context, limit int) ([]TopRated, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	aggs, err := s.store.Ratings.AggregateAll(ctx)
	if err != nil {
		return nil, err
	}
	bevs, _, err := s.store.Beverages.List(ctx, repository.BeverageFilter{})
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Beverage, len(bevs))
	for i := range bevs {
		byID[bevs[i].ID] = &bevs[i]
	}

	out := make([]TopRated, 0, len(aggs))
	for _, a := range aggs {
		b, ok := byID[a.BeverageID]
		if !ok || a.Count < models.TopRatedMinCount {
			continue
		}
		out = append(out, TopRated{Beverage: *b.Ref(), AverageRating: round1(a.Average), TotalRatings: a.Count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageRating != out[j].AverageRating {
			return out[i].AverageRating > out[j].AverageRating
		}
		return out[i].TotalRatings > out[j].TotalRatings
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	st, err := s.store.Ratings.Stats(ctx)
	if err != nil {
		return nil, err
	}
	st.Average = round1(st.Average)
	aggs, err := s.store.Ratings.AggregateAll(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.TopRated(ctx, statsTopLimit)
	if err != nil {
		return nil, err
	}
	return &Statistics{RatingStats: st, RatedBeverages: len(aggs), TopRated: top}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
