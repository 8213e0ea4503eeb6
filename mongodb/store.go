// Package mongodb archives queue runs in MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"

	"github.com/olivere/jobqueue/v2/history"
)

const (
	// socketTimeout should be long enough that even a slow mongo server
	// will respond in that length of time. Since mongo servers ping themselves
	// every 10 seconds, we use a value just over 2 ping periods to allow
	// for delayed pings due to issues such as CPU starvation etc.
	socketTimeout = 21 * time.Second

	// dialTimeout should be representative of the upper bound of the
	// time taken to dial a mongo server from within the same cloud/private
	// network.
	dialTimeout = 30 * time.Second

	// defaultCollectionName is the name of the collection in MongoDB.
	// It can be overridden by SetCollectionName.
	defaultCollectionName = "jobqueue_runs"
)

// Store is a history sink backed by MongoDB. Each run is kept as a
// single document, with its jobs embedded.
// It implements history.Sink, history.Lister, and history.Finder.
type Store struct {
	session        *mgo.Session
	dbname         string
	collectionName string
}

// StoreOption is an options provider for Store.
type StoreOption func(*Store)

// NewStore creates a new MongoDB-based history sink.
func NewStore(mongodbURL string, options ...StoreOption) (*Store, error) {
	st := &Store{
		collectionName: defaultCollectionName,
	}
	for _, opt := range options {
		opt(st)
	}

	uri, err := url.Parse(mongodbURL)
	if err != nil {
		return nil, err
	}
	if uri.Path == "" || uri.Path == "/" {
		return nil, errors.New("mongodb: database missing in URL")
	}
	st.dbname = uri.Path[1:]

	st.session, err = mgo.DialWithTimeout(mongodbURL, dialTimeout)
	if err != nil {
		return nil, err
	}

	st.session.SetMode(mgo.Monotonic, true)
	st.session.SetSocketTimeout(socketTimeout)

	coll := st.session.DB(st.dbname).C(st.collectionName)

	// Create indices
	if err := coll.EnsureIndexKey("-started"); err != nil {
		st.session.Close()
		return nil, err
	}
	if err := coll.EnsureIndexKey("jobs.id"); err != nil {
		st.session.Close()
		return nil, err
	}

	return st, nil
}

// SetCollectionName overrides the default collection name.
func SetCollectionName(collectionName string) StoreOption {
	return func(s *Store) {
		s.collectionName = collectionName
	}
}

// Close the MongoDB store.
func (s *Store) Close() error {
	s.session.Close()
	return nil
}

// collection returns the runs collection on a copy of the session.
// Callers must close the returned session.
func (s *Store) collection() (*mgo.Session, *mgo.Collection) {
	session := s.session.Copy()
	return session, session.DB(s.dbname).C(s.collectionName)
}

func (s *Store) wrapError(err error) error {
	if err == mgo.ErrNotFound {
		return history.ErrNotFound
	}
	if mgo.IsDup(err) {
		return fmt.Errorf("%w: %v", history.ErrDuplicateRun, err)
	}
	return err
}

// Record archives run.
func (s *Store) Record(ctx context.Context, run *history.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	session, coll := s.collection()
	defer session.Close()
	return s.wrapError(coll.Insert(run))
}

// List returns the most recent runs first, without their jobs.
func (s *Store) List(ctx context.Context, limit int) ([]*history.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	session, coll := s.collection()
	defer session.Close()
	query := coll.Find(bson.M{}).Select(bson.M{"jobs": 0}).Sort("-started")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var runs []*history.Run
	if err := query.All(&runs); err != nil {
		return nil, s.wrapError(err)
	}
	return runs, nil
}

// Find loads a run including its jobs.
func (s *Store) Find(ctx context.Context, id string) (*history.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	session, coll := s.collection()
	defer session.Close()
	var run history.Run
	if err := coll.FindId(id).One(&run); err != nil {
		return nil, s.wrapError(err)
	}
	return &run, nil
}
