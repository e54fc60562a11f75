// Package mongo implements the event and auth stores on MongoDB.
//
// Mongo offers no serializable multi-document transaction in the deployment
// tiers this service targets, so Register substitutes an explicit
// compare-and-swap: the registration document is keyed by student id (making
// duplicates impossible at the store level) and the counter increment is a
// conditional update that only applies while seats remain, with the
// registration removed again when the increment loses the race.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"campushub.org/internal/event"
	"campushub.org/internal/ids"
)

type Store struct {
	events        *mongo.Collection
	registrations *mongo.Collection
}

var _ event.Service = (*Store)(nil)

// Open connects to MongoDB and returns a Store bound to the given database.
func Open(ctx context.Context, uri, database string) (*Store, *mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	db := client.Database(database)
	return NewStore(db), client, nil
}

// NewStore wraps an existing database handle.
func NewStore(db *mongo.Database) *Store {
	return &Store{
		events:        db.Collection("events"),
		registrations: db.Collection("registrations"),
	}
}

// EnsureIndexes creates the indexes the readers' sort orders rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "isPublished", Value: 1}, {Key: "startAt", Value: 1}}},
		{Keys: bson.D{{Key: "organizerId", Value: 1}, {Key: "startAt", Value: -1}}},
	})
	if err != nil {
		return err
	}
	_, err = s.registrations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "eventId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

type eventDoc struct {
	ID              string    `bson:"_id"`
	Title           string    `bson:"title"`
	Description     string    `bson:"description"`
	Venue           string    `bson:"venue"`
	StartAt         time.Time `bson:"startAt"`
	Capacity        int       `bson:"capacity"`
	RegisteredCount int       `bson:"registeredCount"`
	OrganizerID     string    `bson:"organizerId"`
	IsPublished     bool      `bson:"isPublished"`
	CreatedAt       time.Time `bson:"createdAt"`
}

func (d eventDoc) toEvent() event.Event {
	return event.Event{
		ID:              d.ID,
		Title:           d.Title,
		Description:     d.Description,
		Venue:           d.Venue,
		StartAt:         d.StartAt,
		Capacity:        d.Capacity,
		RegisteredCount: d.RegisteredCount,
		OrganizerID:     d.OrganizerID,
		IsPublished:     d.IsPublished,
		CreatedAt:       d.CreatedAt,
	}
}

type registrationDoc struct {
	ID        string    `bson:"_id"` // eventID + ":" + studentID
	EventID   string    `bson:"eventId"`
	StudentID string    `bson:"studentId"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (d registrationDoc) toRegistration() event.Registration {
	return event.Registration{
		StudentID: d.StudentID,
		EventID:   d.EventID,
		Name:      d.Name,
		Email:     d.Email,
		CreatedAt: d.CreatedAt,
	}
}

func regKey(eventID, studentID string) string {
	return eventID + ":" + studentID
}

func (s *Store) CreateEvent(ctx context.Context, organizerID string, req event.CreateEventRequest) (event.Event, error) {
	req, err := event.ValidateCreate(organizerID, req)
	if err != nil {
		return event.Event{}, err
	}
	doc := eventDoc{
		ID:          ids.New(),
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		StartAt:     req.StartAt.UTC(),
		Capacity:    req.Capacity,
		OrganizerID: organizerID,
		IsPublished: req.IsPublished,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.events.InsertOne(ctx, doc); err != nil {
		return event.Event{}, err
	}
	return doc.toEvent(), nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (event.Event, error) {
	var doc eventDoc
	err := s.events.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return event.Event{}, event.ErrNotFound
	}
	if err != nil {
		return event.Event{}, err
	}
	return doc.toEvent(), nil
}

func (s *Store) ListPublished(ctx context.Context) ([]event.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startAt", Value: 1}})
	return s.listEvents(ctx, bson.M{"isPublished": true}, opts)
}

func (s *Store) ListByOrganizer(ctx context.Context, organizerID string) ([]event.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startAt", Value: -1}})
	return s.listEvents(ctx, bson.M{"organizerId": organizerID}, opts)
}

func (s *Store) listEvents(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]event.Event, error) {
	cursor, err := s.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []eventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]event.Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEvent())
	}
	return out, nil
}

// Register writes the registration first (the student-keyed _id rejects
// duplicates), then applies the conditional counter increment. If the
// increment does not apply because the event filled in between, the
// registration is removed again and the caller sees ErrEventFull.
func (s *Store) Register(ctx context.Context, eventID string, student event.Student) (event.Registration, error) {
	student, err := event.ValidateStudent(student)
	if err != nil {
		return event.Registration{}, err
	}

	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return event.Registration{}, err
	}

	doc := registrationDoc{
		ID:        regKey(eventID, student.ID),
		EventID:   eventID,
		StudentID: student.ID,
		Name:      student.Name,
		Email:     student.Email,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.registrations.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return event.Registration{}, event.ErrAlreadyRegistered
		}
		return event.Registration{}, err
	}

	res, err := s.events.UpdateOne(ctx,
		bson.M{
			"_id":   eventID,
			"$expr": bson.M{"$lt": bson.A{"$registeredCount", "$capacity"}},
		},
		bson.M{"$inc": bson.M{"registeredCount": 1}},
	)
	if err != nil {
		_, _ = s.registrations.DeleteOne(ctx, bson.M{"_id": doc.ID})
		return event.Registration{}, err
	}
	if res.ModifiedCount == 0 {
		// Lost the race for the last seat; undo the registration write.
		_, _ = s.registrations.DeleteOne(ctx, bson.M{"_id": doc.ID})
		return event.Registration{}, event.ErrEventFull
	}

	return doc.toRegistration(), nil
}

func (s *Store) ListRegistrations(ctx context.Context, eventID string) ([]event.Registration, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.registrations.Find(ctx, bson.M{"eventId": eventID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []registrationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]event.Registration, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toRegistration())
	}
	return out, nil
}
