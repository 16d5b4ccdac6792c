package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TourStatus string

const (
	TourActive   TourStatus = "active"
	TourDraft    TourStatus = "draft"
	TourInactive TourStatus = "inactive"
)

func (s TourStatus) Valid() bool {
	return s == TourActive || s == TourDraft || s == TourInactive
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	return s == BookingPending || s == BookingConfirmed || s == BookingCancelled
}

type BlogStatus string

const (
	BlogPending  BlogStatus = "pending"
	BlogApproved BlogStatus = "approved"
	BlogRejected BlogStatus = "rejected"
	BlogDraft    BlogStatus = "draft"
)

func (s BlogStatus) Valid() bool {
	switch s {
	case BlogPending, BlogApproved, BlogRejected, BlogDraft:
		return true
	}
	return false
}

type Role string

const (
	RoleUser    Role = "user"
	RoleBlogger Role = "blogger"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBlogger || r == RoleAdmin
}

type UserStatus string

const (
	UserVerified UserStatus = "verified"
	UserPending  UserStatus = "pending"
)

// DateLayout is the calendar date format used for tour, blog and travel dates.
const DateLayout = "2006-01-02"

type Tour struct {
	ID              uint                        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name            string                      `gorm:"not null" json:"name"`
	Location        string                      `json:"location"`
	Destination     string                      `json:"destination"`
	Duration        string                      `json:"duration"`
	MaxParticipants int                         `json:"maxParticipants"`
	Price           int64                       `gorm:"not null" json:"price"`
	Rating          float64                     `json:"rating"`
	Status          TourStatus                  `gorm:"not null;default:'draft';index" json:"status"`
	Bookings        int                         `gorm:"not null;default:0" json:"bookings"`
	Image           string                      `json:"image"`
	Description     string                      `json:"description"`
	Highlights      datatypes.JSONSlice[string] `json:"highlights"`
	Includes        datatypes.JSONSlice[string] `json:"includes"`
	CreatedDate     string                      `json:"createdDate"`
	CreatedAt       time.Time                   `json:"-"`
	UpdatedAt       time.Time                   `json:"-"`
}

// Contact is the customer block collected in the booking wizard.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Booking struct {
	ID            uint                        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Reference     string                      `gorm:"size:36;uniqueIndex" json:"reference"`
	User          Contact                     `gorm:"embedded;embeddedPrefix:user_" json:"user"`
	TourID        uint                        `gorm:"not null;index:idx_booking_tour_date" json:"tourId"`
	TourName      string                      `json:"tourName"`
	From          string                      `gorm:"column:origin" json:"from"`
	To            string                      `gorm:"column:destination" json:"to"`
	Date          string                      `gorm:"not null;index:idx_booking_tour_date" json:"date"`
	Persons       int                         `gorm:"not null" json:"persons"`
	SelectedSeats datatypes.JSONSlice[string] `json:"selectedSeats"`
	Notes         string                      `json:"notes"`
	Amount        int64                       `gorm:"not null" json:"amount"`
	Status        BookingStatus               `gorm:"not null;default:'pending';index" json:"status"`
	TransactionID string                      `json:"transactionId"`
	PaymentProof  string                      `json:"paymentProof,omitempty"`
	BookingDate   time.Time                   `gorm:"index" json:"bookingDate"`
}

type Author struct {
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar"`
}

type BlogPost struct {
	ID              uint                        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Title           string                      `gorm:"not null" json:"title"`
	Author          Author                      `gorm:"embedded;embeddedPrefix:author_" json:"author"`
	Content         string                      `json:"content"`
	Excerpt         string                      `json:"excerpt"`
	Status          BlogStatus                  `gorm:"not null;default:'pending';index" json:"status"`
	SubmissionDate  string                      `json:"submissionDate"`
	PublishDate     string                      `json:"publishDate,omitempty"`
	RejectionReason string                      `json:"rejectionReason,omitempty"`
	Category        string                      `json:"category"`
	Destination     string                      `json:"destination,omitempty"`
	ReadTime        string                      `json:"readTime"`
	Likes           int                         `gorm:"not null;default:0" json:"likes"`
	Comments        int                         `gorm:"not null;default:0" json:"comments"`
	Views           int                         `gorm:"not null;default:0" json:"views"`
	Images          datatypes.JSONSlice[string] `json:"images"`
	Tags            datatypes.JSONSlice[string] `json:"tags"`
}

type BlogComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"postId"`
	ParentID  *uint     `gorm:"index" json:"parentId"`
	Author    string    `gorm:"not null" json:"author"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	ID            uint       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name          string     `gorm:"not null" json:"name"`
	Email         string     `gorm:"not null;uniqueIndex" json:"email"`
	Phone         string     `json:"phone"`
	Password      string     `gorm:"not null" json:"-"`
	Role          Role       `gorm:"not null;default:'user'" json:"role"`
	Status        UserStatus `gorm:"not null;default:'pending'" json:"status"`
	JoinDate      string     `json:"joinDate"`
	TotalBookings int        `gorm:"not null;default:0" json:"totalBookings"`
	Avatar        *string    `json:"avatar"`
}

// Setting is one persisted configuration blob.
type Setting struct {
	Key       string         `gorm:"primaryKey;size:64"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

// TourDocument is the search index representation of a tour.
type TourDocument struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Destination string   `json:"destination"`
	Duration    string   `json:"duration"`
	Description string   `json:"description"`
	Highlights  []string `json:"highlights"`
	Price       int64    `json:"price"`
	Rating      float64  `json:"rating"`
	Status      string   `json:"status"`
	Bookings    int      `json:"bookings"`
}

func NewTourDocument(t *Tour) *TourDocument {
	return &TourDocument{
		ID:          t.ID,
		Name:        t.Name,
		Location:    t.Location,
		Destination: t.Destination,
		Duration:    t.Duration,
		Description: t.Description,
		Highlights:  []string(t.Highlights),
		Price:       t.Price,
		Rating:      t.Rating,
		Status:      string(t.Status),
		Bookings:    t.Bookings,
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Tour{},
		&Booking{},
		&BlogPost{},
		&BlogComment{},
		&User{},
		&Setting{},
	)
}
