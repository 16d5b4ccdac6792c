package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/explorebd/explorebd-api/internal/auth"
	"github.com/explorebd/explorebd-api/internal/config"
	"github.com/explorebd/explorebd-api/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DemoPassword is the login password of every seeded non-admin account.
const DemoPassword = "password123"

func Connect(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("database connected and migrated")
	return db, nil
}

// SeedData loads the demo catalogue, bookings, blog posts and accounts.
// Each table is only filled when empty, so running it twice is harmless.
// The admin account from the configuration is created if it is missing.
func SeedData(ctx context.Context, db *gorm.DB, cfg *config.Config, log zerolog.Logger) error {
	db = db.WithContext(ctx)

	steps := []struct {
		name  string
		model any
		rows  func() (any, error)
	}{
		{"tours", &models.Tour{}, func() (any, error) {
			tours := seedTours()
			return &tours, nil
		}},
		{"bookings", &models.Booking{}, func() (any, error) {
			bookings := seedBookings()
			return &bookings, nil
		}},
		{"blog posts", &models.BlogPost{}, func() (any, error) {
			posts := seedBlogPosts()
			return &posts, nil
		}},
		{"users", &models.User{}, func() (any, error) {
			users, err := seedUsers()
			return &users, err
		}},
	}

	for _, step := range steps {
		var count int64
		if err := db.Model(step.model).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count %s: %w", step.name, err)
		}
		if count > 0 {
			log.Debug().Str("table", step.name).Int64("rows", count).Msg("already seeded, skipping")
			continue
		}
		rows, err := step.rows()
		if err != nil {
			return err
		}
		if err := db.Create(rows).Error; err != nil {
			return fmt.Errorf("failed to seed %s: %w", step.name, err)
		}
		log.Info().Str("table", step.name).Msg("seeded")
	}

	return ensureAdmin(db, cfg, log)
}

func ensureAdmin(db *gorm.DB, cfg *config.Config, log zerolog.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return nil
	}

	var existing models.User
	err := db.Where(&models.User{Email: email}).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	var max uint
	if err := db.Model(&models.User{}).Select("COALESCE(MAX(id), 0)").Scan(&max).Error; err != nil {
		return fmt.Errorf("failed to compute admin id: %w", err)
	}

	admin := models.User{
		ID:       max + 1,
		Name:     "Admin User",
		Email:    email,
		Phone:    "+880 1700-000000",
		Password: hash,
		Role:     models.RoleAdmin,
		Status:   models.UserVerified,
		JoinDate: time.Now().Format(models.DateLayout),
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	log.Info().Str("email", email).Msg("admin account created")
	return nil
}

func seedTours() []models.Tour {
	return []models.Tour{
		{
			ID: 1, Name: "Sundarbans Adventure", Location: "Khulna Division", Destination: "Khulna",
			Duration: "3 Days", MaxParticipants: 12, Price: 15000, Rating: 4.9,
			Status: models.TourActive, Bookings: 142, Image: "🌿",
			Description: "Explore the world's largest mangrove forest and spot Bengal tigers in their natural habitat.",
			Highlights:  datatypes.JSONSlice[string]{"Royal Bengal Tiger", "Boat Safari", "Mangrove Ecosystem"},
			Includes:    datatypes.JSONSlice[string]{"Accommodation", "Meals", "Guide", "Transportation"},
			CreatedDate: "2024-01-01",
		},
		{
			ID: 2, Name: "Cox's Bazar Beach", Location: "Chittagong Division", Destination: "Cox's Bazar",
			Duration: "2 Days", MaxParticipants: 20, Price: 8000, Rating: 4.8,
			Status: models.TourActive, Bookings: 98, Image: "🏖️",
			Description: "Experience the world's longest natural sea beach with golden sand and stunning sunsets.",
			Highlights:  datatypes.JSONSlice[string]{"Longest Sea Beach", "Sunset Views", "Water Sports"},
			Includes:    datatypes.JSONSlice[string]{"Hotel Stay", "Breakfast", "Transportation"},
			CreatedDate: "2024-01-02",
		},
		{
			ID: 3, Name: "Srimangal Tea Gardens", Location: "Sylhet Division", Destination: "Sylhet",
			Duration: "2 Days", MaxParticipants: 15, Price: 6500, Rating: 4.7,
			Status: models.TourActive, Bookings: 76, Image: "🍃",
			Description: "Walk through rolling hills covered in lush tea gardens and learn about tea culture.",
			Highlights:  datatypes.JSONSlice[string]{"Tea Plantations", "Lawachara Forest", "Tribal Culture"},
			Includes:    datatypes.JSONSlice[string]{"Accommodation", "Tea Tasting", "Forest Guide"},
			CreatedDate: "2024-01-03",
		},
		{
			ID: 4, Name: "Historical Dhaka", Location: "Dhaka Division", Destination: "Dhaka",
			Duration: "1 Day", MaxParticipants: 25, Price: 3500, Rating: 4.6,
			Status: models.TourDraft, Bookings: 0, Image: "🏛️",
			Description: "Discover ancient architecture, vibrant markets, and rich Mughal heritage.",
			Highlights:  datatypes.JSONSlice[string]{"Lalbagh Fort", "Old Dhaka", "Mughal Architecture"},
			Includes:    datatypes.JSONSlice[string]{"Guide", "Lunch", "Entry Tickets"},
			CreatedDate: "2024-01-15",
		},
		{
			ID: 5, Name: "Bandarban Hills", Location: "Chittagong Division", Destination: "Bandarban",
			Duration: "3 Days", MaxParticipants: 10, Price: 12000, Rating: 4.5,
			Status: models.TourActive, Bookings: 45, Image: "⛰️",
			Description: "Adventure through the hills and valleys of Bandarban with tribal culture experience.",
			Highlights:  datatypes.JSONSlice[string]{"Hill Trekking", "Tribal Villages", "Natural Springs"},
			Includes:    datatypes.JSONSlice[string]{"Camping", "Local Guide", "Meals"},
			CreatedDate: "2024-01-10",
		},
		{
			ID: 6, Name: "River Cruise", Location: "Dhaka Division", Destination: "Dhaka",
			Duration: "1 Day", MaxParticipants: 30, Price: 5000, Rating: 4.4,
			Status: models.TourActive, Bookings: 67, Image: "🚤",
			Description: "Enjoy a relaxing river cruise through the heart of Bangladesh.",
			Highlights:  datatypes.JSONSlice[string]{"River Views", "Local Life", "Traditional Boats"},
			Includes:    datatypes.JSONSlice[string]{"Boat Ride", "Lunch", "Guide"},
			CreatedDate: "2024-01-12",
		},
	}
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func seedBookings() []models.Booking {
	return []models.Booking{
		{
			ID: 1, Reference: "seed-booking-0001",
			User:   models.Contact{Name: "Sarah Ahmed", Email: "sarah@email.com", Phone: "+880 1700-123456"},
			TourID: 1, TourName: "Sundarbans Adventure", From: "Dhaka", To: "Khulna",
			Date: "2024-01-25", Persons: 2, SelectedSeats: datatypes.JSONSlice[string]{"A1", "A2"},
			Notes:  "We have dietary restrictions - vegetarian meals only. Also, my wife has mild claustrophobia, so please avoid confined spaces during the boat tour.",
			Amount: 30000, Status: models.BookingConfirmed, TransactionID: "BKash123456789",
			BookingDate: parseTime("2024-01-15T10:30:00Z"),
		},
		{
			ID: 2, Reference: "seed-booking-0002",
			User:   models.Contact{Name: "Rahul Khan", Email: "rahul@email.com", Phone: "+880 1700-234567"},
			TourID: 2, TourName: "Cox's Bazar Beach", From: "Chittagong", To: "Cox's Bazar",
			Date: "2024-01-30", Persons: 1, SelectedSeats: datatypes.JSONSlice[string]{"B3"},
			Notes:  "First time visiting Cox's Bazar. Would appreciate recommendations for local seafood restaurants. I'm particularly interested in photography spots for sunrise.",
			Amount: 8000, Status: models.BookingPending, TransactionID: "BKash987654321",
			BookingDate: parseTime("2024-01-14T15:45:00Z"),
		},
		{
			ID: 3, Reference: "seed-booking-0003",
			User:   models.Contact{Name: "Maya Begum", Email: "maya@email.com", Phone: "+880 1700-345678"},
			TourID: 3, TourName: "Srimangal Tea Gardens", From: "Sylhet", To: "Sylhet",
			Date: "2024-02-05", Persons: 3, SelectedSeats: datatypes.JSONSlice[string]{"C1", "C2", "C3"},
			Notes:  "Traveling with elderly parents (65+ years). Please ensure comfortable seating and slower pace during walking tours. Mother is diabetic, please have glucose available.",
			Amount: 19500, Status: models.BookingConfirmed, TransactionID: "BKash456789123",
			BookingDate: parseTime("2024-01-13T09:20:00Z"),
		},
		{
			ID: 4, Reference: "seed-booking-0004",
			User:   models.Contact{Name: "David Smith", Email: "david@email.com", Phone: "+880 1700-456789"},
			TourID: 4, TourName: "Historical Dhaka", From: "Gazipur", To: "Dhaka",
			Date: "2024-01-28", Persons: 1, SelectedSeats: datatypes.JSONSlice[string]{"D1"},
			Notes:  "International tourist, very interested in Mughal architecture and local history. Please arrange English-speaking guide. Also interested in traditional craft shopping.",
			Amount: 3500, Status: models.BookingConfirmed, TransactionID: "BKash789123456",
			BookingDate: parseTime("2024-01-12T14:15:00Z"),
		},
		{
			ID: 5, Reference: "seed-booking-0005",
			User:   models.Contact{Name: "Fatima Rahman", Email: "fatima@email.com", Phone: "+880 1700-567890"},
			TourID: 1, TourName: "Sundarbans Adventure", From: "Dhaka", To: "Khulna",
			Date: "2024-02-10", Persons: 4, SelectedSeats: datatypes.JSONSlice[string]{"E1", "E2", "E3", "E4"},
			Notes:  "Family trip with two children (ages 8 and 12). Please ensure life jackets for kids. Children are excited about wildlife - hope to see Royal Bengal Tigers!",
			Amount: 60000, Status: models.BookingPending, TransactionID: "BKash345678912",
			BookingDate: parseTime("2024-01-16T11:00:00Z"),
		},
	}
}

func seedBlogPosts() []models.BlogPost {
	author := func(name, email string) models.Author {
		return models.Author{Name: name, Email: email}
	}
	return []models.BlogPost{
		{
			ID: 1, Title: "My Journey Through the Sundarbans", Author: author("John Doe", "john@email.com"),
			Content: "The Sundarbans mangrove forest was truly a magical experience. From the moment we entered the boat, I knew this was going to be special. The dense mangrove canopy created natural tunnels as we navigated through the narrow channels...",
			Excerpt: "An unforgettable experience spotting Bengal tigers and exploring the world's largest mangrove forest.",
			Status:  models.BlogApproved, SubmissionDate: "2024-01-15", PublishDate: "2024-01-16",
			Category: "Adventure", Destination: "Sundarbans", ReadTime: "5 min read",
			Likes: 45, Comments: 12, Views: 387,
			Images: datatypes.JSONSlice[string]{},
			Tags:   datatypes.JSONSlice[string]{"sundarbans", "wildlife", "adventure", "bengal tiger"},
		},
		{
			ID: 2, Title: "Tea Gardens and Morning Mist in Srimangal", Author: author("Jane Smith", "jane@email.com"),
			Content: "Waking up at dawn in Srimangal to witness the morning mist rolling over the tea gardens is something that will stay with me forever. The rolling hills covered in emerald green tea bushes...",
			Excerpt: "Walking through the rolling hills of tea gardens while learning about local tea culture.",
			Status:  models.BlogPending, SubmissionDate: "2024-01-14",
			Category: "Culture", Destination: "Srimangal", ReadTime: "4 min read",
			Images: datatypes.JSONSlice[string]{},
			Tags:   datatypes.JSONSlice[string]{"srimangal", "tea", "culture", "nature"},
		},
		{
			ID: 3, Title: "Cox's Bazar Sunset Experience", Author: author("Mike Johnson", "mike@email.com"),
			Content: "The world's longest natural sea beach offers some of the most spectacular sunsets I've ever witnessed. As the golden hour approached, the entire beach transformed into a canvas of colors...",
			Excerpt: "Witnessing the golden sunrise over the world's longest natural beach was truly magical.",
			Status:  models.BlogApproved, SubmissionDate: "2024-01-13", PublishDate: "2024-01-13",
			Category: "Beach", Destination: "Cox's Bazar", ReadTime: "3 min read",
			Likes: 24, Comments: 8, Views: 156,
			Images: datatypes.JSONSlice[string]{},
			Tags:   datatypes.JSONSlice[string]{"cox's bazar", "beach", "sunset", "photography"},
		},
		{
			ID: 4, Title: "Exploring Old Dhaka's Hidden Gems", Author: author("Sarah Ahmed", "sarah@email.com"),
			Content: "Old Dhaka is a treasure trove of history, culture, and architectural marvels. Walking through the narrow lanes of Old Dhaka feels like traveling back in time...",
			Excerpt: "Discovering ancient architecture, vibrant markets, and rich Mughal heritage in Old Dhaka.",
			Status:  models.BlogApproved, SubmissionDate: "2024-01-10", PublishDate: "2024-01-11",
			Category: "History", Destination: "Dhaka", ReadTime: "6 min read",
			Likes: 42, Comments: 15, Views: 298,
			Images: datatypes.JSONSlice[string]{},
			Tags:   datatypes.JSONSlice[string]{"dhaka", "history", "architecture", "culture"},
		},
		{
			ID: 5, Title: "Inappropriate Content Test", Author: author("Bad User", "bad@email.com"),
			Content: "This is a test post with inappropriate content that should be rejected...",
			Excerpt: "Test post that should be rejected",
			Status:  models.BlogRejected, SubmissionDate: "2024-01-12",
			RejectionReason: "Inappropriate content and language",
			Category:        "Other", ReadTime: "1 min read",
			Images: datatypes.JSONSlice[string]{},
			Tags:   datatypes.JSONSlice[string]{},
		},
		{
			ID: 6, Title: "Food Adventures in Bangladesh", Author: author("Maria Rodriguez", "maria@email.com"),
			Content: "Bangladesh cuisine is a delightful journey of flavors and spices. From street food to traditional dishes, every meal tells a story...",
			Excerpt: "Exploring the rich culinary heritage of Bangladesh through local markets and traditional recipes.",
			Status:  models.BlogApproved, SubmissionDate: "2024-01-09", PublishDate: "2024-01-10",
			Category: "Food", Destination: "Dhaka", ReadTime: "7 min read",
			Likes: 38, Comments: 12, Views: 234,
			Images: datatypes.JSONSlice[string]{},
			Tags:   datatypes.JSONSlice[string]{"food", "culture", "street food", "traditional"},
		},
	}
}

// seedUsers returns the demo accounts. The admin is added by ensureAdmin.
func seedUsers() ([]models.User, error) {
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return nil, err
	}
	users := []models.User{
		{ID: 1, Name: "Sarah Ahmed", Email: "sarah@email.com", Phone: "+880 1700-123456", Role: models.RoleUser, Status: models.UserVerified, JoinDate: "2024-01-10", TotalBookings: 3},
		{ID: 2, Name: "Rahul Khan", Email: "rahul@email.com", Phone: "+880 1700-234567", Role: models.RoleUser, Status: models.UserVerified, JoinDate: "2024-01-08", TotalBookings: 1},
		{ID: 3, Name: "Maya Begum", Email: "maya@email.com", Phone: "+880 1700-345678", Role: models.RoleUser, Status: models.UserPending, JoinDate: "2024-01-15"},
		{ID: 4, Name: "David Smith", Email: "david@email.com", Phone: "+880 1700-456789", Role: models.RoleBlogger, Status: models.UserVerified, JoinDate: "2024-01-05", TotalBookings: 5},
	}
	for i := range users {
		users[i].Password = hash
	}
	return users, nil
}
