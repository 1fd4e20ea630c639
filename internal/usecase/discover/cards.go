package discover

import "bmdb-api/internal/domain"

// ProjectCards строит карточки проектов. Повторяющиеся id схлопываются, побеждает первое вхождение.
func ProjectCards(projects []domain.Project, aggregates map[string]domain.RatingAggregate, commentCounts map[string]int) []domain.ProjectCard {
	cards := make([]domain.ProjectCard, 0, len(projects))
	seen := make(map[string]struct{}, len(projects))
	for _, project := range projects {
		if _, ok := seen[project.ID]; ok {
			continue
		}
		seen[project.ID] = struct{}{}
		aggregate, hasAggregate := aggregates[project.ID]
		cards = append(cards, projectCard(project, aggregate, hasAggregate, commentCounts[project.ID]))
	}
	return cards
}

func projectCard(project domain.Project, aggregate domain.RatingAggregate, hasAggregate bool, comments int) domain.ProjectCard {
	card := domain.ProjectCard{
		ID:           project.ID,
		Title:        project.Title,
		Slug:         project.Slug,
		Description:  project.Description,
		PosterURL:    project.PosterURL,
		ProjectType:  project.ProjectType,
		PublishedAt:  project.PublishedAt,
		CommentCount: max(comments, 0),
	}
	// avgRating пуст тогда и только тогда, когда оценок нет.
	if hasAggregate && aggregate.RatingCount > 0 {
		avg := aggregate.AvgRating
		card.AvgRating = &avg
		card.RatingCount = aggregate.RatingCount
	}
	return card
}
