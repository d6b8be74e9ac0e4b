package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eventbooker/event-booker/internal/core/domain"
)

const bookingsCollection = "bookings"

type BookingRepository struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewBookingRepository(db *mongo.Database, timeout time.Duration) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection), timeout: opTimeout(timeout)}
}

type mongoBooking struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	EventID     string             `bson:"event_id"`
	UserID      string             `bson:"user_id"`
	Seats       int                `bson:"seats"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"created_at"`
	CancelledAt *time.Time         `bson:"cancelled_at,omitempty"`
	Released    bool               `bson:"seats_released"`
}

func (mb mongoBooking) toDomain() *domain.Booking {
	return &domain.Booking{
		ID:            mb.ID.Hex(),
		EventID:       mb.EventID,
		UserID:        mb.UserID,
		Seats:         mb.Seats,
		Status:        domain.BookingStatus(mb.Status),
		CreatedAt:     mb.CreatedAt,
		CancelledAt:   mb.CancelledAt,
		SeatsReleased: mb.Released,
	}
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc := mongoBooking{
		EventID:   b.EventID,
		UserID:    b.UserID,
		Seats:     b.Seats,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt.UTC(),
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, storeErr("insert booking", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*domain.Booking, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrBookingNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var mb mongoBooking
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&mb); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, storeErr("find booking", err)
	}
	return mb.toDomain(), nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, storeErr("find bookings", err)
	}
	defer cur.Close(ctx)

	var docs []mongoBooking
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storeErr("decode bookings", err)
	}

	out := make([]*domain.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// MarkCancelled flips status only from confirmed, so a booking's seats are
// released at most once.
func (r *BookingRepository) MarkCancelled(ctx context.Context, id string, at time.Time) (*domain.Booking, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrBookingNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"_id": oid, "status": string(domain.BookingConfirmed)}
	update := bson.M{"$set": bson.M{
		"status":         string(domain.BookingCancelled),
		"cancelled_at":   at.UTC(),
		"seats_released": false,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var mb mongoBooking
	err = r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&mb)
	if err == nil {
		return mb.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storeErr("cancel booking", err)
	}

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, storeErr("cancel booking", err)
	}
	if n == 0 {
		return nil, domain.ErrBookingNotFound
	}
	return nil, domain.ErrBookingCancelled
}

func (r *BookingRepository) MarkSeatsReleased(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrBookingNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"seats_released": true}})
	if err != nil {
		return storeErr("mark seats released", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}
