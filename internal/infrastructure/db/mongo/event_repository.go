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
	"github.com/eventbooker/event-booker/internal/core/ports"
)

const eventsCollection = "events"

// eventProjection leaves out released_keys, which only the release filter reads.
var eventProjection = bson.M{"released_keys": 0}

// EventRepository implements ports.EventRepository using MongoDB. Seat
// mutations are single conditional updates so the server evaluates the
// capacity check and the increment atomically.
type EventRepository struct {
	col     *mongo.Collection
	timeout time.Duration
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *mongo.Database, timeout time.Duration) *EventRepository {
	return &EventRepository{col: db.Collection(eventsCollection), timeout: opTimeout(timeout)}
}

type mongoEvent struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Date        time.Time          `bson:"date"`
	Location    string             `bson:"location"`
	Price       float64            `bson:"price"`
	Capacity    int                `bson:"capacity"`
	BookedSeats int                `bson:"booked_seats"`
	Category    string             `bson:"category"`
	OrganizerID string             `bson:"organizer_id"`
	IsActive    bool               `bson:"is_active"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (me mongoEvent) toDomain() *domain.Event {
	return &domain.Event{
		ID:          me.ID.Hex(),
		Title:       me.Title,
		Description: me.Description,
		Date:        me.Date,
		Location:    me.Location,
		Price:       me.Price,
		Capacity:    me.Capacity,
		BookedSeats: me.BookedSeats,
		Category:    domain.Category(me.Category),
		OrganizerID: me.OrganizerID,
		IsActive:    me.IsActive,
		CreatedAt:   me.CreatedAt,
		UpdatedAt:   me.UpdatedAt,
	}
}

func (r *EventRepository) Create(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	if err := domain.CheckSeats(e.BookedSeats, e.Capacity); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc := mongoEvent{
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date.UTC(),
		Location:    e.Location,
		Price:       e.Price,
		Capacity:    e.Capacity,
		BookedSeats: e.BookedSeats,
		Category:    string(e.Category),
		OrganizerID: e.OrganizerID,
		IsActive:    e.IsActive,
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, storeErr("insert event", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *EventRepository) FindByID(ctx context.Context, id string) (*domain.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrEventNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.findOne(ctx, oid)
}

func (r *EventRepository) findOne(ctx context.Context, oid primitive.ObjectID) (*domain.Event, error) {
	var me mongoEvent
	opts := options.FindOne().SetProjection(eventProjection)
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&me); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrEventNotFound
		}
		return nil, storeErr("find event", err)
	}
	return me.toDomain(), nil
}

func (r *EventRepository) List(ctx context.Context, f ports.ListEventsFilter) ([]*domain.Event, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{}
	if f.ActiveOnly {
		filter["is_active"] = true
	}
	if f.Category != "" {
		filter["category"] = string(f.Category)
	}
	if f.OrganizerID != "" {
		filter["organizer_id"] = f.OrganizerID
	}
	if !f.UpcomingAt.IsZero() {
		filter["date"] = bson.M{"$gt": f.UpcomingAt.UTC()}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, storeErr("count events", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}}).SetProjection(eventProjection)
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
		if f.Page > 1 {
			opts.SetSkip(int64((f.Page - 1) * f.Limit))
		}
	}

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, storeErr("find events", err)
	}
	defer cur.Close(ctx)

	var docs []mongoEvent
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, storeErr("decode events", err)
	}

	items := make([]*domain.Event, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toDomain())
	}
	return items, total, nil
}

// Update writes the descriptive fields. The capacity condition is part of the
// filter so a concurrent booking cannot slip under a shrinking capacity.
func (r *EventRepository) Update(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	oid, err := primitive.ObjectIDFromHex(e.ID)
	if err != nil {
		return nil, domain.ErrEventNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"_id": oid, "booked_seats": bson.M{"$lte": e.Capacity}}
	update := bson.M{"$set": bson.M{
		"title":       e.Title,
		"description": e.Description,
		"date":        e.Date.UTC(),
		"location":    e.Location,
		"price":       e.Price,
		"capacity":    e.Capacity,
		"category":    string(e.Category),
		"updated_at":  e.UpdatedAt.UTC(),
	}}

	updated, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.explainMiss(ctx, oid, func(current *domain.Event) error {
			return domain.CheckSeats(current.BookedSeats, e.Capacity)
		})
	}
	return updated, err
}

// ReserveSeats increments booked_seats by n only when booked_seats + n stays
// within capacity.
func (r *EventRepository) ReserveSeats(ctx context.Context, id string, n int) (*domain.Event, error) {
	if err := domain.ValidateSeatCount(n); err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrEventNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{
		"_id":       oid,
		"is_active": true,
		"$expr": bson.M{"$lte": bson.A{
			bson.M{"$add": bson.A{"$booked_seats", n}},
			"$capacity",
		}},
	}
	update := bson.M{
		"$inc": bson.M{"booked_seats": n},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	updated, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.explainMiss(ctx, oid, func(current *domain.Event) error {
			if !current.IsActive {
				return domain.ErrEventInactive
			}
			return current.Reserve(n)
		})
	}
	return updated, err
}

// ReleaseSeats decrements booked_seats by n only when the result stays >= 0
// and key has not been applied before. The key is recorded in the same write.
func (r *EventRepository) ReleaseSeats(ctx context.Context, id, key string, n int) (*domain.Event, error) {
	if err := domain.ValidateSeatCount(n); err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrEventNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{
		"_id":           oid,
		"booked_seats":  bson.M{"$gte": n},
		"released_keys": bson.M{"$ne": key},
	}
	update := bson.M{
		"$inc":  bson.M{"booked_seats": -n},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
		"$push": bson.M{"released_keys": key},
	}

	updated, err := r.findOneAndUpdate(ctx, filter, update)
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return updated, err
	}

	applied, err := r.col.CountDocuments(ctx, bson.M{"_id": oid, "released_keys": key})
	if err != nil {
		return nil, storeErr("find event", err)
	}
	if applied > 0 {
		return r.findOne(ctx, oid)
	}
	return nil, r.explainMiss(ctx, oid, func(current *domain.Event) error {
		return current.Release(n)
	})
}

// explainMiss re-reads an event after a conditional write matched nothing and
// reports why.
func (r *EventRepository) explainMiss(ctx context.Context, oid primitive.ObjectID, check func(*domain.Event) error) error {
	current, err := r.findOne(ctx, oid)
	if err != nil {
		return err
	}
	return missReason(current, check)
}

// missReason never returns nil: a record that passes check by the time it is
// re-read lost a race with another write and is reported as a capacity
// rejection.
func missReason(current *domain.Event, check func(*domain.Event) error) error {
	if err := check(current); err != nil {
		return err
	}
	return domain.ErrCapacityExceeded
}

func (r *EventRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*domain.Event, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(eventProjection)

	var me mongoEvent
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&me); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		return nil, storeErr("update event", err)
	}
	return me.toDomain(), nil
}

func (r *EventRepository) SetActive(ctx context.Context, id string, active bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrEventNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now().UTC()}}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return storeErr("set event active", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) DeactivatePast(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"is_active": true, "date": bson.M{"$lt": now.UTC()}}
	update := bson.M{"$set": bson.M{"is_active": false, "updated_at": now.UTC()}}
	res, err := r.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, storeErr("deactivate past events", err)
	}
	return res.ModifiedCount, nil
}
