package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haze-team/haze-server/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection     = "users"
	imagesCollection    = "images"
	blockLogsCollection = "blocklogs"
	matchLogsCollection = "matchlogs"
	logsCollection      = "logs"
)

// NewMongoRepositories binds every store to its collection in db
func NewMongoRepositories(db *mongo.Database) Repositories {
	return Repositories{
		Users:     NewUserRepository(db),
		Images:    NewImagesRepository(db),
		BlockLogs: NewBlockLogRepository(db),
		MatchLogs: NewMatchLogRepository(db),
		Logs:      NewLogRepository(db),
	}
}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

// Finds a user by its public id
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return &user, nil
}

// Adds one to the reported counter of a user
func (r *UserRepository) IncrementReported(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{
			"$inc": bson.M{"reported": 1},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("increment reported %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

type ImagesRepository struct {
	coll *mongo.Collection
}

func NewImagesRepository(db *mongo.Database) *ImagesRepository {
	return &ImagesRepository{coll: db.Collection(imagesCollection)}
}

// Finds the image set uploaded by a user
func (r *ImagesRepository) FindByUserID(ctx context.Context, userID string) (*models.Images, error) {
	var images models.Images
	err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&images)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrImagesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find images of %s: %w", userID, err)
	}
	return &images, nil
}

type BlockLogRepository struct {
	coll *mongo.Collection
}

func NewBlockLogRepository(db *mongo.Database) *BlockLogRepository {
	return &BlockLogRepository{coll: db.Collection(blockLogsCollection)}
}

func (r *BlockLogRepository) FindByUserID(ctx context.Context, userID string) (*models.BlockLog, error) {
	var blockLog models.BlockLog
	err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&blockLog)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrBlockLogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find block log of %s: %w", userID, err)
	}
	return &blockLog, nil
}

func (r *BlockLogRepository) Create(ctx context.Context, userID string, blockUserIDs []string) (*models.BlockLog, error) {
	if blockUserIDs == nil {
		blockUserIDs = []string{}
	}
	now := time.Now()
	blockLog := models.BlockLog{
		UserID:       userID,
		BlockUserIDs: blockUserIDs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.coll.InsertOne(ctx, blockLog); err != nil {
		return nil, fmt.Errorf("create block log of %s: %w", userID, err)
	}
	return &blockLog, nil
}

// Adds blockUserID to the block list; adding an existing id changes nothing
func (r *BlockLogRepository) AddBlockedUser(ctx context.Context, userID, blockUserID string) (*models.BlockLog, error) {
	return r.update(ctx, userID, bson.M{
		"$addToSet": bson.M{"blockUserIds": blockUserID},
		"$set":      bson.M{"updatedAt": time.Now()},
	})
}

func (r *BlockLogRepository) RemoveBlockedUser(ctx context.Context, userID, blockUserID string) (*models.BlockLog, error) {
	return r.update(ctx, userID, bson.M{
		"$pull": bson.M{"blockUserIds": blockUserID},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
}

func (r *BlockLogRepository) update(ctx context.Context, userID string, update bson.M) (*models.BlockLog, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var blockLog models.BlockLog
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&blockLog)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrBlockLogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update block log of %s: %w", userID, err)
	}
	return &blockLog, nil
}

type MatchLogRepository struct {
	coll *mongo.Collection
}

func NewMatchLogRepository(db *mongo.Database) *MatchLogRepository {
	return &MatchLogRepository{coll: db.Collection(matchLogsCollection)}
}

func (r *MatchLogRepository) Create(ctx context.Context, log *models.MatchLog) error {
	if _, err := r.coll.InsertOne(ctx, log); err != nil {
		return fmt.Errorf("create match log %s: %w", log.ID, err)
	}
	return nil
}

type LogRepository struct {
	coll *mongo.Collection
}

func NewLogRepository(db *mongo.Database) *LogRepository {
	return &LogRepository{coll: db.Collection(logsCollection)}
}

func (r *LogRepository) Create(ctx context.Context, content string) error {
	now := time.Now()
	_, err := r.coll.InsertOne(ctx, models.Log{
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("create log: %w", err)
	}
	return nil
}

// Returns the most recent logs first
func (r *LogRepository) FindAll(ctx context.Context, limit int64) ([]models.Log, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := []models.Log{}
	for cursor.Next(ctx) {
		var log models.Log
		if err := cursor.Decode(&log); err != nil {
			return nil, fmt.Errorf("decode log: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, cursor.Err()
}
