package repositories

import (
	"context"
	"time"
	"tutor-ai/internal/constants"
	"tutor-ai/internal/models"
	"tutor-ai/pkg/mongodb"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FileMetadataRepository interface {
	ListByVectorStore(ctx context.Context, userID, vectorStoreID string) ([]*models.FileMetadata, error)
	Upsert(ctx context.Context, meta *models.FileMetadata) error
	DeleteByFileID(ctx context.Context, userID, fileID string) error
}

type fileMetadataRepository struct {
	collection *mongo.Collection
}

func NewFileMetadataRepository(mongoClient *mongodb.MongoDBClient) FileMetadataRepository {
	return &fileMetadataRepository{
		collection: mongoClient.GetCollectionByName(constants.CollectionFileMetadata),
	}
}

func (r *fileMetadataRepository) ListByVectorStore(ctx context.Context, userID, vectorStoreID string) ([]*models.FileMetadata, error) {
	filter := bson.M{"user_id": userID}
	if vectorStoreID != "" {
		filter["vector_store_id"] = vectorStoreID
	}
	opts := options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	files := []*models.FileMetadata{}
	if err := cursor.All(ctx, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (r *fileMetadataRepository) Upsert(ctx context.Context, meta *models.FileMetadata) error {
	if meta.UploadedAt.IsZero() {
		meta.UploadedAt = time.Now().UTC()
	}
	filter := bson.M{"user_id": meta.UserID, "file_id": meta.FileID}
	update := bson.M{"$set": bson.M{
		"vector_store_id": meta.VectorStoreID,
		"name":            meta.Name,
		"mime_type":       meta.MimeType,
		"size":            meta.Size,
		"uploaded_at":     meta.UploadedAt,
		"extra":           meta.Extra,
	}}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *fileMetadataRepository) DeleteByFileID(ctx context.Context, userID, fileID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID, "file_id": fileID})
	return err
}

type PreferencesRepository interface {
	Get(ctx context.Context, userID string) (*models.UserPreferences, error)
	Upsert(ctx context.Context, prefs *models.UserPreferences) error
}

type preferencesRepository struct {
	collection *mongo.Collection
}

func NewPreferencesRepository(mongoClient *mongodb.MongoDBClient) PreferencesRepository {
	return &preferencesRepository{
		collection: mongoClient.GetCollectionByName(constants.CollectionUserPreferences),
	}
}

// Get falls back to the default preferences for users who never saved any
func (r *preferencesRepository) Get(ctx context.Context, userID string) (*models.UserPreferences, error) {
	var prefs models.UserPreferences
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prefs)
	if err == mongo.ErrNoDocuments {
		return models.DefaultUserPreferences(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *preferencesRepository) Upsert(ctx context.Context, prefs *models.UserPreferences) error {
	prefs.UpdatedAt = time.Now().UTC()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": prefs.UserID},
		bson.M{"$set": prefs},
		options.Update().SetUpsert(true))
	return err
}
