// Package mongostore is the MongoDB persistence gateway.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskhub/internal/models"
	"taskhub/internal/repository"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"

	emailIndex    = "email_unique"
	usernameIndex = "username_unique"
)

// Store wraps one database holding the users and tasks collections.
type Store struct {
	users *mongo.Collection
	tasks *mongo.Collection
	now   func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{
		users: db.Collection(usersCollection),
		tasks: db.Collection(tasksCollection),
		now:   time.Now,
	}
}

func (s *Store) Users() repository.UserRepository { return userRepo{s} }
func (s *Store) Tasks() repository.TaskRepository { return taskRepo{s} }

// EnsureIndexes creates the uniqueness and listing indexes. It is safe to
// call on every start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(emailIndex)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName(usernameIndex)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	_, err = s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create task indexes: %w", err)
	}
	return nil
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password,omitempty"`
	IsActive  bool               `bson:"isActive"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d userDoc) model() *models.User {
	return &models.User{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		Email:     d.Email,
		Password:  d.Password,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
	}
}

type taskDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	DueDate     time.Time          `bson:"dueDate"`
	Priority    string             `bson:"priority"`
	Status      string             `bson:"status"`
	CreatedBy   primitive.ObjectID `bson:"createdBy"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d taskDoc) model() *models.Task {
	return &models.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		DueDate:     d.DueDate,
		Priority:    models.Priority(d.Priority),
		Status:      models.Status(d.Status),
		CreatedBy:   d.CreatedBy.Hex(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// now is truncated to the millisecond precision BSON dates keep.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func duplicateField(err error) string {
	if strings.Contains(err.Error(), usernameIndex) {
		return "username"
	}
	return "email"
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	doc := userDoc{
		Username:  user.Username,
		Email:     user.Email,
		Password:  user.Password,
		IsActive:  user.IsActive,
		CreatedAt: r.s.timestamp(),
	}
	res, err := r.s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &repository.DuplicateKeyError{Field: duplicateField(err), Err: err}
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID).Hex()
	user.CreatedAt = doc.CreatedAt
	return nil
}

func (r userRepo) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.User, error) {
	var doc userDoc
	err := r.s.users.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.model(), nil
}

func (r userRepo) FindByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{bson.M{"email": email}, bson.M{"username": username}}})
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r userRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(bson.M{"password": 0}))
}

type taskRepo struct{ s *Store }

// ownedFilter returns false when either id is not an ObjectID; such a task
// cannot exist.
func ownedFilter(id, owner string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	ownerID, err := primitive.ObjectIDFromHex(owner)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "createdBy": ownerID}, true
}

func (r taskRepo) Create(ctx context.Context, task *models.Task) error {
	ownerID, err := primitive.ObjectIDFromHex(task.CreatedBy)
	if err != nil {
		return fmt.Errorf("task owner %q: %w", task.CreatedBy, err)
	}
	now := r.s.timestamp()
	doc := taskDoc{
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Priority:    string(task.Priority),
		Status:      string(task.Status),
		CreatedBy:   ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := r.s.tasks.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &repository.DuplicateKeyError{Field: "task", Err: err}
		}
		return fmt.Errorf("insert task: %w", err)
	}
	task.ID = res.InsertedID.(primitive.ObjectID).Hex()
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

func (r taskRepo) ListByOwner(ctx context.Context, owner string) ([]models.Task, error) {
	ownerID, err := primitive.ObjectIDFromHex(owner)
	if err != nil {
		return []models.Task{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.s.tasks.Find(ctx, bson.M{"createdBy": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []taskDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	out := make([]models.Task, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.model())
	}
	return out, nil
}

func (r taskRepo) FindOwned(ctx context.Context, id, owner string) (*models.Task, error) {
	filter, ok := ownedFilter(id, owner)
	if !ok {
		return nil, repository.ErrNotFound
	}
	var doc taskDoc
	err := r.s.tasks.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return doc.model(), nil
}

func (r taskRepo) UpdateOwned(ctx context.Context, id, owner string, upd models.TaskUpdate) (*models.Task, error) {
	filter, ok := ownedFilter(id, owner)
	if !ok {
		return nil, repository.ErrNotFound
	}
	set := bson.M{"updatedAt": r.s.timestamp()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.DueDate != nil {
		set["dueDate"] = *upd.DueDate
	}
	if upd.Priority != nil {
		set["priority"] = string(*upd.Priority)
	}
	if upd.Status != nil {
		set["status"] = string(*upd.Status)
	}

	var doc taskDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.s.tasks.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return doc.model(), nil
}

func (r taskRepo) DeleteOwned(ctx context.Context, id, owner string) (*models.Task, error) {
	filter, ok := ownedFilter(id, owner)
	if !ok {
		return nil, repository.ErrNotFound
	}
	var doc taskDoc
	err := r.s.tasks.FindOneAndDelete(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	return doc.model(), nil
}
