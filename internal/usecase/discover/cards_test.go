package discover

import (
	"testing"

	"bmdb-api/internal/domain"
)

func TestProjectCardsAppliesLookups(t *testing.T) {
	desc := "короткий метр"
	projects := []domain.Project{
		{ID: "a", Title: "A", Slug: "a", Description: &desc, ProjectType: domain.ProjectTypeShort, PublishedAt: daysAgo(1)},
		{ID: "b", Title: "B", Slug: "b", ProjectType: domain.ProjectTypeFeature, PublishedAt: daysAgo(2)},
	}
	aggregates := map[string]domain.RatingAggregate{"a": {ProjectID: "a", AvgRating: 8.25, RatingCount: 4}}
	comments := map[string]int{"a": 3}

	cards := ProjectCards(projects, aggregates, comments)
	if len(cards) != 2 {
		t.Fatalf("ожидали 2 карточки, получили %d", len(cards))
	}
	a, b := cards[0], cards[1]
	if a.AvgRating == nil || *a.AvgRating != 8.25 || a.RatingCount != 4 || a.CommentCount != 3 {
		t.Fatalf("неверная карточка a: %+v", a)
	}
	if a.Description == nil || *a.Description != desc {
		t.Fatalf("описание должно переноситься в карточку")
	}
	if b.AvgRating != nil || b.RatingCount != 0 || b.CommentCount != 0 {
		t.Fatalf("без агрегатов ожидали значения по умолчанию: %+v", b)
	}
	if b.ProjectType != domain.ProjectTypeFeature {
		t.Fatalf("тип проекта должен сохраняться")
	}
}

func TestProjectCardsCollapsesDuplicateIDs(t *testing.T) {
	projects := []domain.Project{
		{ID: "a", Title: "first"},
		{ID: "a", Title: "second"},
		{ID: "b", Title: "other"},
	}
	cards := ProjectCards(projects, nil, nil)
	if len(cards) != 2 {
		t.Fatalf("ожидали 2 уникальные карточки, получили %d", len(cards))
	}
	if cards[0].Title != "first" {
		t.Fatalf("ожидали, что останется первое вхождение")
	}
}
