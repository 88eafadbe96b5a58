package mongo

import (
	"context"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/status"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// JobStore keeps job records in mongo db
type JobStore struct {
	SessionProvider *SessionProvider
}

// NewJobStore creates JobStore instance
func NewJobStore(sessionProvider *SessionProvider) (*JobStore, error) {
	if sessionProvider == nil {
		return nil, errors.New("No session provider")
	}
	return &JobStore{SessionProvider: sessionProvider}, nil
}

func (js *JobStore) collection() (*mongo.Collection, mongo.Session, error) {
	session, err := js.SessionProvider.NewSession()
	if err != nil {
		return nil, nil, err
	}
	return session.Client().Database(store).Collection(jobTable), session, nil
}

// Insert adds a new job record
func (js *JobStore) Insert(ctx context.Context, job *jobs.Job) error {
	cmdapp.Log.Infof("Inserting job %s", job.ID)
	c, session, err := js.collection()
	if err != nil {
		return err
	}
	defer session.EndSession(context.Background())
	_, err = c.InsertOne(ctx, job)
	if err != nil {
		return errors.Wrap(err, "Can't insert job")
	}
	return nil
}

// Load returns the job record
func (js *JobStore) Load(ctx context.Context, id string) (*jobs.Job, error) {
	c, session, err := js.collection()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(context.Background())
	var res jobs.Job
	err = c.FindOne(ctx, bson.M{"ID": id}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, errs.Errorf(errs.NotFound, "unknown job id %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "Can't load job")
	}
	return &res, nil
}

// CasUpdate replaces the job record only if the stored status matches.
// One atomic write, the filter carries the expected status, so a
// concurrent transition can never be overwritten by a stale record
func (js *JobStore) CasUpdate(ctx context.Context, job *jobs.Job, from status.Status) (bool, error) {
	c, session, err := js.collection()
	if err != nil {
		return false, err
	}
	defer session.EndSession(context.Background())
	res, err := c.ReplaceOne(ctx, bson.M{"ID": job.ID, "status": from}, job)
	if err != nil {
		return false, errors.Wrap(err, "Can't update job")
	}
	if res.MatchedCount == 0 {
		n, err := c.CountDocuments(ctx, bson.M{"ID": job.ID})
		if err != nil {
			return false, errors.Wrap(err, "Can't check job")
		}
		if n == 0 {
			return false, errs.Errorf(errs.NotFound, "unknown job id %s", job.ID)
		}
		return false, nil
	}
	return true, nil
}

// LoadActive returns all non terminal jobs
func (js *JobStore) LoadActive(ctx context.Context) ([]*jobs.Job, error) {
	c, session, err := js.collection()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(context.Background())
	cursor, err := c.Find(ctx, bson.M{"status": bson.M{"$nin": []status.Status{
		status.Completed, status.Failed, status.Cancelled}}})
	if err != nil {
		return nil, errors.Wrap(err, "Can't select jobs")
	}
	defer cursor.Close(ctx)
	res := make([]*jobs.Job, 0)
	for cursor.Next(ctx) {
		var job jobs.Job
		if err := cursor.Decode(&job); err != nil {
			return nil, errors.Wrap(err, "Can't decode job")
		}
		res = append(res, &job)
	}
	return res, cursor.Err()
}

// Delete removes the job record
func (js *JobStore) Delete(ctx context.Context, id string) error {
	cmdapp.Log.Infof("Deleting job record %s", id)
	c, session, err := js.collection()
	if err != nil {
		return err
	}
	defer session.EndSession(context.Background())
	_, err = c.DeleteOne(ctx, bson.M{"ID": id})
	if err != nil {
		return errors.Wrap(err, "Can't delete job")
	}
	return nil
}
