// Package mongo provides the document-store ledger backend. It mirrors
// the layout the product started with: a households collection and an
// expenses collection keyed by household id, with change streams
// feeding the full-snapshot subscription model.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"casaspese/internal/core"
	"casaspese/internal/store"
)

const (
	householdsCollection = "households"
	expensesCollection   = "expenses"

	connectTimeout = 10 * time.Second
	queryTimeout   = 5 * time.Second
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	hub    *store.Hub
}

type householdDoc struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	InviteCode string    `bson:"inviteCode"`
	Members    []string  `bson:"members"`
	CreatedBy  string    `bson:"createdBy"`
	CreatedAt  time.Time `bson:"createdAt"`
}

type expenseDoc struct {
	ID          string    `bson:"_id"`
	HouseholdID string    `bson:"householdId"`
	AmountCents int64     `bson:"amountCents"`
	Description string    `bson:"description"`
	Category    string    `bson:"category"`
	Date        string    `bson:"date"` // YYYY-MM-DD, sorts chronologically
	User        string    `bson:"user"`
	Currency    string    `bson:"currency"`
	CreatedAt   time.Time `bson:"createdAt"`
}

// New connects to MongoDB with a few retries so the server survives a
// database that is still starting up.
func New(ctx context.Context, uri, database string) (*Store, error) {
	var client *mongo.Client
	err := retry.Do(
		func() error {
			connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
			defer cancel()

			c, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
			if err != nil {
				return err
			}
			if err := c.Ping(connectCtx, nil); err != nil {
				_ = c.Disconnect(connectCtx)
				return err
			}
			client = c
			return nil
		},
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(database),
		hub:    store.NewHub(),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.Collection(householdsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "inviteCode", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create invite code index: %w", err)
	}

	_, err = s.db.Collection(expensesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "householdId", Value: 1}, {Key: "date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create expense index: %w", err)
	}
	return nil
}

func (s *Store) CreateHousehold(ctx context.Context, h core.Household) error {
	if err := h.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.Collection(householdsCollection).InsertOne(ctx, householdDoc{
		ID:         h.ID,
		Name:       h.Name,
		InviteCode: h.InviteCode,
		Members:    h.Members,
		CreatedBy:  h.CreatedBy,
		CreatedAt:  h.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicateID
	}
	if err != nil {
		return fmt.Errorf("insert household: %w", err)
	}
	return nil
}

func (s *Store) GetHousehold(ctx context.Context, id string) (core.Household, error) {
	return s.findHousehold(ctx, bson.M{"_id": id})
}

func (s *Store) FindHouseholdByInviteCode(ctx context.Context, code string) (core.Household, error) {
	return s.findHousehold(ctx, bson.M{"inviteCode": code})
}

func (s *Store) findHousehold(ctx context.Context, filter bson.M) (core.Household, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc householdDoc
	err := s.db.Collection(householdsCollection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Household{}, store.ErrHouseholdNotFound
	}
	if err != nil {
		return core.Household{}, fmt.Errorf("find household: %w", err)
	}
	return core.Household{
		ID:         doc.ID,
		Name:       doc.Name,
		InviteCode: doc.InviteCode,
		Members:    doc.Members,
		CreatedBy:  doc.CreatedBy,
		CreatedAt:  doc.CreatedAt,
	}, nil
}

// AddMember appends the member unless already present ($addToSet keeps
// the operation idempotent under concurrent joins).
func (s *Store) AddMember(ctx context.Context, householdID, member string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.Collection(householdsCollection).UpdateOne(ctx,
		bson.M{"_id": householdID},
		bson.M{"$addToSet": bson.M{"members": member}})
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrHouseholdNotFound
	}
	return nil
}

func (s *Store) AppendExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, err := s.GetHousehold(ctx, e.HouseholdID); err != nil {
		return err
	}

	insertCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := s.db.Collection(expensesCollection).InsertOne(insertCtx, expenseDoc{
		ID:          e.ID,
		HouseholdID: e.HouseholdID,
		AmountCents: e.Amount.Cents,
		Description: e.Description,
		Category:    e.Category,
		Date:        e.Date.String(),
		User:        e.User,
		Currency:    e.CurrencyOrDefault(),
		CreatedAt:   e.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	// Local writes notify through the hub so subscribers do not depend
	// on change-stream availability (standalone mongod has none).
	if snapshot, err := s.ListExpenses(ctx, e.HouseholdID); err == nil {
		s.hub.Publish(e.HouseholdID, snapshot)
	}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, householdID, id string) (core.Expense, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var doc expenseDoc
	err := s.db.Collection(expensesCollection).
		FindOne(ctx, bson.M{"_id": id, "householdId": householdID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Expense{}, store.ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("find expense: %w", err)
	}
	return docToExpense(doc)
}

func (s *Store) ListExpenses(ctx context.Context, householdID string) ([]core.Expense, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cur, err := s.db.Collection(expensesCollection).Find(ctx,
		bson.M{"householdId": householdID},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer cur.Close(ctx)

	var out []core.Expense
	for cur.Next(ctx) {
		var doc expenseDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode expense: %w", err)
		}
		e, err := docToExpense(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// WatchExpenses subscribes before reading the snapshot, so a write
// racing the setup can only make the first delivery newer. The seed
// goes to the new watcher alone.
func (s *Store) WatchExpenses(ctx context.Context, householdID string) (<-chan []core.Expense, error) {
	ch := s.hub.Subscribe(ctx, householdID)
	snapshot, err := s.ListExpenses(ctx, householdID)
	if err != nil {
		return nil, err
	}
	s.hub.Seed(ch, snapshot)
	return ch, nil
}

// Run tails the expenses change stream and republishes full snapshots,
// so writes from other processes reach local subscribers too. It
// returns when ctx is done; a missing change-stream capability (e.g.
// standalone mongod) downgrades to hub-only notifications with a
// warning.
func (s *Store) Run(ctx context.Context) error {
	stream, err := s.db.Collection(expensesCollection).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		slog.WarnContext(ctx, "Change streams unavailable, relying on local notifications", "error", err)
		<-ctx.Done()
		return nil
	}
	defer stream.Close(context.Background())

	slog.InfoContext(ctx, "Watching expense change stream")
	for stream.Next(ctx) {
		var event struct {
			FullDocument expenseDoc `bson:"fullDocument"`
		}
		if err := stream.Decode(&event); err != nil {
			slog.ErrorContext(ctx, "Failed to decode change event", "error", err)
			continue
		}
		householdID := event.FullDocument.HouseholdID
		if householdID == "" {
			continue
		}
		snapshot, err := s.ListExpenses(ctx, householdID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to refresh expense list",
				"household_id", householdID, "error", err)
			continue
		}
		s.hub.Publish(householdID, snapshot)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("change stream: %w", err)
	}
	return nil
}

func docToExpense(doc expenseDoc) (core.Expense, error) {
	date, err := core.ParseDate(doc.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored date %q: %w", doc.Date, err)
	}
	return core.Expense{
		ID:          doc.ID,
		HouseholdID: doc.HouseholdID,
		Amount:      core.Money{Cents: doc.AmountCents},
		Description: doc.Description,
		Category:    doc.Category,
		Date:        date,
		User:        doc.User,
		Currency:    doc.Currency,
		CreatedAt:   doc.CreatedAt,
	}, nil
}
