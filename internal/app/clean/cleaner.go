package clean

import (
	"context"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/store"
	"github.com/pkg/errors"
)

type cleanerImpl struct {
	jobs []Cleaner
}

// newCleanerImpl removes everything a job left behind: the uploaded
// audio, the render workspace, the assembled deck and the record
func newCleanerImpl(jobStore store.Store, fileStorage string) (*cleanerImpl, error) {
	c := cleanerImpl{}
	c.jobs = make([]Cleaner, 0)
	for _, pattern := range []string{"uploads/{ID}.*", "workspace/{ID}", "outputs/{ID}.pptx"} {
		lf, err := newLocalFile(fileStorage, pattern)
		if err != nil {
			return nil, err
		}
		c.jobs = append(c.jobs, lf)
	}
	c.jobs = append(c.jobs, &recordCleaner{store: jobStore})
	return &c, nil
}

func (c *cleanerImpl) Clean(ID string) error {
	failed := 0
	for _, job := range c.jobs {
		err := job.Clean(ID)
		if err != nil {
			cmdapp.Log.Error(err)
			failed++
		}
	}
	if failed == len(c.jobs) {
		return errors.New("All delete tasks failed")
	}
	return nil
}

type recordCleaner struct {
	store store.Store
}

func (c *recordCleaner) Clean(ID string) error {
	return c.store.Delete(context.Background(), ID)
}
