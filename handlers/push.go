package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"danceforchange/errs"
	"danceforchange/models"
)

// PushSubscription stores one member's web-push registration.
type PushSubscription struct {
	ID     primitive.ObjectID   `bson:"_id,omitempty"`
	UserID primitive.ObjectID   `bson:"userId"`
	Sub    webpush.Subscription `bson:"sub"`
}

// PushNotifier nudges members who are not connected to the live
// channel when a new post lands. Strictly best-effort: a failed push
// never fails or delays the originating mutation.
type PushNotifier struct {
	subs       *mongo.Collection
	publicKey  string
	privateKey string
	subscriber string
}

// NewPushNotifier reads the VAPID configuration from the environment.
// Returns nil when keys are not configured; push is then disabled and
// the rest of the service is unaffected. Keys come from cmd/genvapid.
func NewPushNotifier(subs *mongo.Collection) *PushNotifier {
	publicKey := os.Getenv("VAPID_PUBLIC_KEY")
	privateKey := os.Getenv("VAPID_PRIVATE_KEY")
	if publicKey == "" || privateKey == "" {
		log.Println("⚠️  VAPID keys not set - web push disabled")
		return nil
	}

	subscriber := os.Getenv("VAPID_EMAIL")
	if subscriber == "" {
		subscriber = "mailto:admin@d4c.com"
	}

	return &PushNotifier{
		subs:       subs,
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
	}
}

// GetVapidPublicKey hands the browser the key it needs to subscribe.
func (p *PushNotifier) GetVapidPublicKey(c *gin.Context) {
	sendSuccess(c, http.StatusOK, "VAPID public key retrieved successfully", gin.H{
		"publicKey": p.publicKey,
	})
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

// Subscribe upserts the caller's push subscription, one per member.
func (p *PushNotifier) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, &errs.ValidationError{Message: "Invalid subscription payload"}, "")
		return
	}

	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub := PushSubscription{
		UserID: userID,
		Sub: webpush.Subscription{
			Endpoint: req.Endpoint,
			Keys: webpush.Keys{
				P256dh: req.Keys.P256dh,
				Auth:   req.Keys.Auth,
			},
		},
	}

	_, err := p.subs.UpdateOne(
		ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"userId": sub.UserID, "sub": sub.Sub}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		sendError(c, &errs.StoreError{Op: "save subscription", Err: err}, "Failed to save subscription")
		return
	}

	log.Printf("Push subscription saved for user: %s", userID.Hex())
	sendSuccess(c, http.StatusOK, "Push subscription saved successfully", nil)
}

// NotifyNewPost sends the visibility-filtered post to every stored
// subscription. Runs in its own goroutine; errors are logged only.
// Gone subscriptions (endpoint returned 404/410) are removed.
func (p *PushNotifier) NotifyNewPost(post models.Post) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cursor, err := p.subs.Find(ctx, bson.M{})
	if err != nil {
		log.Printf("❌ Push: failed to load subscriptions: %v", err)
		return
	}
	defer cursor.Close(ctx)

	var subs []PushSubscription
	if err := cursor.All(ctx, &subs); err != nil {
		log.Printf("❌ Push: failed to decode subscriptions: %v", err)
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type": "new-post",
		"post": post,
	})
	if err != nil {
		log.Printf("❌ Push: failed to marshal payload: %v", err)
		return
	}

	for _, sub := range subs {
		resp, err := webpush.SendNotification(payload, &sub.Sub, &webpush.Options{
			Subscriber:      p.subscriber,
			VAPIDPublicKey:  p.publicKey,
			VAPIDPrivateKey: p.privateKey,
			TTL:             60,
		})
		if err != nil {
			log.Printf("❌ Push: send to user %s failed: %v", sub.UserID.Hex(), err)
			continue
		}
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			if _, err := p.subs.DeleteOne(ctx, bson.M{"_id": sub.ID}); err != nil {
				log.Printf("❌ Push: failed to remove gone subscription: %v", err)
			}
		}
		resp.Body.Close()
	}
}
