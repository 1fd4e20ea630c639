package domain

import "time"

// ProjectType описывает формат проекта.
type ProjectType string

const (
	ProjectTypeShort     ProjectType = "SHORT"
	ProjectTypeFeature   ProjectType = "FEATURE"
	ProjectTypeWebSeries ProjectType = "WEB_SERIES"
	ProjectTypeScene     ProjectType = "SCENE"
	ProjectTypeOther     ProjectType = "OTHER"
)

// ProjectStatus описывает стадию публикации проекта.
type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "DRAFT"
	ProjectStatusPublished ProjectStatus = "PUBLISHED"
	ProjectStatusArchived  ProjectStatus = "ARCHIVED"
)

// CommentStatus описывает видимость комментария.
type CommentStatus string

const (
	CommentStatusVisible CommentStatus = "VISIBLE"
	CommentStatusRemoved CommentStatus = "REMOVED"
)

// Project представляет опубликованный проект в том виде, в котором он читается из БД.
type Project struct {
	ID          string
	Title       string
	Slug        string
	Description *string
	PosterURL   *string
	ProjectType ProjectType
	PublishedAt *time.Time
}

// RatingAggregate хранит предрассчитанные БД среднюю оценку и число оценок проекта.
type RatingAggregate struct {
	ProjectID   string
	AvgRating   float64
	RatingCount int
}

// ActivityScores хранит число оценок и видимых комментариев по проекту за окно активности.
type ActivityScores map[string]int

// ProjectCard описывает нормализованное представление проекта для витрин.
type ProjectCard struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Slug         string      `json:"slug"`
	Description  *string     `json:"description"`
	PosterURL    *string     `json:"posterUrl"`
	ProjectType  ProjectType `json:"projectType"`
	PublishedAt  *time.Time  `json:"publishedAt"`
	AvgRating    *float64    `json:"avgRating"`
	RatingCount  int         `json:"ratingCount"`
	CommentCount int         `json:"commentCount"`
}

// DiscoverFeed содержит четыре витрины страницы Discover.
type DiscoverFeed struct {
	Trending   []ProjectCard `json:"trending"`
	TopRated   []ProjectCard `json:"topRated"`
	NewNotable []ProjectCard `json:"newNotable"`
	Recent     []ProjectCard `json:"recent"`
}

// RatingsSummary описывает сводку оценок проекта.
type RatingsSummary struct {
	Avg          *float64    `json:"avg"`
	Count        int         `json:"count"`
	Distribution map[int]int `json:"distribution"`
	UserRating   *int        `json:"userRating"`
}

// CommentProfile содержит публичные поля профиля автора комментария.
type CommentProfile struct {
	Username    *string `json:"username"`
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
}

// Comment представляет комментарий к проекту.
type Comment struct {
	ID        string         `json:"id"`
	Body      string         `json:"body"`
	Status    CommentStatus  `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	UserID    string         `json:"userId"`
	Profile   CommentProfile `json:"profile"`
}

// CommentPage описывает страницу комментариев с курсором на следующую.
type CommentPage struct {
	Comments   []Comment `json:"comments"`
	NextCursor *string   `json:"nextCursor"`
}

// User описывает аутентифицированного пользователя из access token.
type User struct {
	ID    string
	Email string
	Role  UserRole
	// Claims хранит исходные claims токена, они пробрасываются в БД для auth.uid().
	Claims map[string]any
}
