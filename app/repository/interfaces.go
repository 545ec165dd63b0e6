package repository

import (
	"github.com/careerforge/careerforge/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	Count() (int64, error)
}

// ChatRepository defines the interface for chat session/message operations.
// Completion and failure of assistant messages are compare-and-set on the
// pending status so redelivered job triggers cannot settle a message twice.
type ChatRepository interface {
	CreateSession(session *models.ChatSession) error
	GetSessionByID(id uint) (*models.ChatSession, error)
	GetSessionByUUID(uuid string) (*models.ChatSession, error)
	ListSessionsByUser(userID uint, offset, limit int) ([]models.ChatSession, error)
	CreateMessage(msg *models.ChatMessage) error
	GetMessageByID(id uint) (*models.ChatMessage, error)
	GetMessageByUUID(uuid string) (*models.ChatMessage, error)
	ListSessionMessages(sessionID uint, limit int) ([]models.ChatMessage, error)
	CompleteMessage(id uint, content, providerID string, tokensUsed int) (bool, error)
	FailMessage(id uint, reason string) (bool, error)
}

// CoverLetterRepository defines the interface for cover letter operations
type CoverLetterRepository interface {
	Create(letter *models.CoverLetter) error
	GetByID(id uint) (*models.CoverLetter, error)
	GetByUUID(uuid string) (*models.CoverLetter, error)
	ListByUser(userID uint, offset, limit int) ([]models.CoverLetter, error)
	Complete(id uint, content, providerID string, tokensUsed int) (bool, error)
	Fail(id uint, reason string) (bool, error)
}

// RoadmapRepository defines the interface for learning roadmap operations
type RoadmapRepository interface {
	Create(roadmap *models.Roadmap) error
	GetByID(id uint) (*models.Roadmap, error)
	GetByUUID(uuid string) (*models.Roadmap, error)
	ListByUser(userID uint, offset, limit int) ([]models.Roadmap, error)
	Complete(id uint, content, providerID string, tokensUsed int) (bool, error)
	Fail(id uint, reason string) (bool, error)
}

// CapstoneReviewRepository defines the interface for capstone review operations
type CapstoneReviewRepository interface {
	Create(review *models.CapstoneReview) error
	GetByID(id uint) (*models.CapstoneReview, error)
	GetByUUID(uuid string) (*models.CapstoneReview, error)
	ListByUser(userID uint, offset, limit int) ([]models.CapstoneReview, error)
	Complete(id uint, review string, score int, providerID string, tokensUsed int) (bool, error)
	Fail(id uint, reason string) (bool, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User           UserRepository
	Chat           ChatRepository
	CoverLetter    CoverLetterRepository
	Roadmap        RoadmapRepository
	CapstoneReview CapstoneReviewRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:           NewUserRepository(db),
		Chat:           NewChatRepository(db),
		CoverLetter:    NewCoverLetterRepository(db),
		Roadmap:        NewRoadmapRepository(db),
		CapstoneReview: NewCapstoneReviewRepository(db),
	}
}
