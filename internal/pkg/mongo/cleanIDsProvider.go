package mongo

import (
	"context"
	"time"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// CleanIDsProvider returns old job IDs to remove from the system
type CleanIDsProvider struct {
	SessionProvider *SessionProvider
	expireDuration  time.Duration
}

// NewCleanIDsProvider creates CleanIDsProvider instance
func NewCleanIDsProvider(sessionProvider *SessionProvider, expireDuration time.Duration) (*CleanIDsProvider, error) {
	if sessionProvider == nil {
		return nil, errors.New("No session provider")
	}
	return &CleanIDsProvider{SessionProvider: sessionProvider, expireDuration: expireDuration}, nil
}

// Get returns expired job IDs
func (p *CleanIDsProvider) Get() ([]string, error) {
	expDate := time.Now().Add(-p.expireDuration)
	cmdapp.Log.Infof("Getting old records, updatedAt < %s", expDate.String())
	session, err := p.SessionProvider.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(context.Background())

	ctx, cancel := mongoContext()
	defer cancel()
	c := session.Client().Database(store).Collection(jobTable)
	cursor, err := c.Find(ctx, bson.M{"updatedAt": bson.M{"$lt": expDate}})
	if err != nil {
		return nil, errors.Wrap(err, "Can't select from "+jobTable)
	}
	defer cursor.Close(ctx)
	result := make([]string, 0)
	for cursor.Next(ctx) {
		var m bson.M
		if err := cursor.Decode(&m); err != nil {
			return nil, errors.Wrap(err, "Can't decode record")
		}
		id, ok := m["ID"].(string)
		if !ok || id == "" {
			cmdapp.Log.Warn("Record with no ID skipped")
			continue
		}
		result = append(result, id)
	}
	return result, cursor.Err()
}
