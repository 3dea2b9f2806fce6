package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"danceforchange/database"
	"danceforchange/middleware"
	"danceforchange/models"
)

// Seeds the database with an admin, approved members and sample
// MindTalk posts, then prints ready-to-use bearer tokens for local
// testing.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	log.Println("Attempting to connect to MongoDB...")
	if err := database.ConnectMongo(); err != nil {
		log.Fatal("❌ Failed to connect to MongoDB:", err)
	}
	defer database.DisconnectMongo()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Println("Clearing existing data...")
	if _, err := database.Users.DeleteMany(ctx, bson.M{}); err != nil {
		log.Fatal("❌ Failed to clear users:", err)
	}
	if _, err := database.Posts.DeleteMany(ctx, bson.M{}); err != nil {
		log.Fatal("❌ Failed to clear posts:", err)
	}
	log.Println("✅ Existing data cleared")

	log.Println("Creating users...")
	admin := createUser(ctx, "Admin User", "admin@d4c.com", "admin123", models.RoleAdmin,
		"Contemporary", "Administrator of Dance For Change platform. Dedicated to promoting mental health through dance.")
	sarah := createUser(ctx, "Sarah Johnson", "sarah@d4c.com", "member123", models.RoleMember,
		"Hip Hop", "Passionate dancer using movement as therapy. Love connecting with others through dance.")
	michael := createUser(ctx, "Michael Chen", "michael@d4c.com", "member123", models.RoleMember,
		"Breakdance", "Found my voice through dance. Here to support others on their journey.")
	log.Println("✅ Users created")

	log.Println("Creating MindTalk posts...")
	now := time.Now().Unix()

	posts := []models.Post{
		{
			Text:      "Started dancing again after a rough month. It feels like breathing again. If you're struggling, put on one song and just move.",
			Category:  models.CategoryMotivation,
			Anonymous: true,
			AuthorID:  sarah.ID,
			Reactions: []models.Reaction{
				{UserID: michael.ID, Type: models.ReactionSupport},
			},
			Comments: []models.Comment{
				{UserID: michael.ID, Text: "Needed to read this today. Thank you.", CreatedAt: now - 3000},
			},
			CreatedAt: now - 3600,
			UpdatedAt: now - 3000,
		},
		{
			Text:      "Grateful for this community. Last week's session reminded me I'm not alone in this.",
			Category:  models.CategoryGratitude,
			Anonymous: false,
			AuthorID:  michael.ID,
			Reactions: []models.Reaction{
				{UserID: sarah.ID, Type: models.ReactionLove},
			},
			Comments:  []models.Comment{},
			CreatedAt: now - 1800,
			UpdatedAt: now - 1800,
		},
		{
			Text:      "Exams are eating me alive and I can't sleep. Dancing tonight is the only thing keeping my head above water.",
			Category:  models.CategoryStress,
			Anonymous: true,
			AuthorID:  sarah.ID,
			Reactions: []models.Reaction{},
			Comments:  []models.Comment{},
			CreatedAt: now - 600,
			UpdatedAt: now - 600,
		},
	}

	for i := range posts {
		if _, err := database.Posts.InsertOne(ctx, posts[i]); err != nil {
			log.Fatal("❌ Failed to create post:", err)
		}
	}
	log.Println("✅ MindTalk posts created")

	log.Println("========================================")
	log.Println("Seed complete. Test tokens:")
	log.Printf("admin@d4c.com (admin):   %s", signToken(admin))
	log.Printf("sarah@d4c.com (member):  %s", signToken(sarah))
	log.Printf("michael@d4c.com (member): %s", signToken(michael))
}

func createUser(ctx context.Context, name, email, password, role, danceStyle, bio string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("❌ Failed to hash password:", err)
	}

	user := models.User{
		Name:       name,
		Email:      email,
		Password:   string(hash),
		Role:       role,
		Status:     models.StatusApproved,
		DanceStyle: danceStyle,
		Bio:        bio,
		CreatedAt:  time.Now().Unix(),
	}

	res, err := database.Users.InsertOne(ctx, user)
	if err != nil {
		log.Fatalf("❌ Failed to create user %s: %v", email, err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return &user
}

func signToken(user *models.User) string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "fallback-secret-change-in-production"
	}

	claims := middleware.Claims{
		UserID: user.ID.Hex(),
		Role:   user.Role,
		Status: user.Status,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		log.Fatal("❌ Failed to sign token:", err)
	}
	return token
}
