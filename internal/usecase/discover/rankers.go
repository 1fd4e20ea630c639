package discover

import (
	"sort"
	"time"

	"bmdb-api/internal/domain"
)

const (
	// ViewLimit ограничивает размер каждой витрины.
	ViewLimit = 20
	// TopRatedMinRatings задаёт минимальное число оценок для Top Rated и New & Notable.
	TopRatedMinRatings = 5
	// NewNotableMinAvg задаёт минимальную среднюю оценку для New & Notable.
	NewNotableMinAvg = 7.5
	// NewNotableWindowDays определяет, сколько дней проект считается новым.
	NewNotableWindowDays = 30
	// TrendingWindowDays задаёт окно, в котором считается активность для Trending.
	TrendingWindowDays = 7
)

var epoch = time.Unix(0, 0).UTC()

// RankRecent сортирует карточки по дате публикации, проекты без даты считаются самыми старыми.
func RankRecent(cards []domain.ProjectCard) []domain.ProjectCard {
	out := clone(cards)
	sort.SliceStable(out, func(i, j int) bool {
		return publishedOrEpoch(out[i]).After(publishedOrEpoch(out[j]))
	})
	return capped(out)
}

// RankTopRated оставляет проекты с достаточным числом оценок и сортирует по средней оценке,
// при равенстве по числу оценок.
func RankTopRated(cards []domain.ProjectCard) []domain.ProjectCard {
	out := make([]domain.ProjectCard, 0, len(cards))
	for _, card := range cards {
		if card.AvgRating != nil && card.RatingCount >= TopRatedMinRatings {
			out = append(out, card)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if *out[i].AvgRating != *out[j].AvgRating {
			return *out[i].AvgRating > *out[j].AvgRating
		}
		return out[i].RatingCount > out[j].RatingCount
	})
	return capped(out)
}

// RankTrending сортирует все карточки по активности за последние дни. Карточки без активности
// тоже участвуют, равные значения сохраняют входной порядок.
func RankTrending(cards []domain.ProjectCard, activity domain.ActivityScores) []domain.ProjectCard {
	out := clone(cards)
	sort.SliceStable(out, func(i, j int) bool {
		return activity[out[i].ID] > activity[out[j].ID]
	})
	return capped(out)
}

// RankNewNotable оставляет недавно опубликованные проекты с высокой оценкой.
func RankNewNotable(cards []domain.ProjectCard, now time.Time) []domain.ProjectCard {
	cutoff := now.UTC().AddDate(0, 0, -NewNotableWindowDays)
	out := make([]domain.ProjectCard, 0, len(cards))
	for _, card := range cards {
		if card.PublishedAt == nil || card.PublishedAt.Before(cutoff) {
			continue
		}
		if card.AvgRating == nil || *card.AvgRating < NewNotableMinAvg || card.RatingCount < TopRatedMinRatings {
			continue
		}
		out = append(out, card)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(*out[j].PublishedAt)
	})
	return capped(out)
}

func publishedOrEpoch(card domain.ProjectCard) time.Time {
	if card.PublishedAt == nil {
		return epoch
	}
	return *card.PublishedAt
}

func clone(cards []domain.ProjectCard) []domain.ProjectCard {
	out := make([]domain.ProjectCard, len(cards))
	copy(out, cards)
	return out
}

func capped(cards []domain.ProjectCard) []domain.ProjectCard {
	if len(cards) > ViewLimit {
		return cards[:ViewLimit]
	}
	return cards
}
