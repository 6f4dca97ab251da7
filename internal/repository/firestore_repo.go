package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/willjrcristo/checkout-subscription/internal/domain"
)

// FirestoreConfig são as credenciais da conta de serviço e a coleção dos usuários.
// Sem ClientEmail/PrivateKey usamos as Application Default Credentials
// (ou o emulador, se FIRESTORE_EMULATOR_HOST estiver definido).
type FirestoreConfig struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
	Collection  string
}

// FirestoreRepository guarda os usuários numa coleção do Firestore.
// O *firestore.Client é seguro para uso concorrente e é compartilhado entre requisições.
type FirestoreRepository struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreRepository inicializa o app Firebase e o cliente do Firestore.
func NewFirestoreRepository(ctx context.Context, cfg FirestoreConfig) (*FirestoreRepository, error) {
	var opts []option.ClientOption
	if cfg.ClientEmail != "" && cfg.PrivateKey != "" {
		creds, err := json.Marshal(map[string]string{
			"type":         "service_account",
			"project_id":   cfg.ProjectID,
			"client_email": cfg.ClientEmail,
			"private_key":  cfg.PrivateKey,
			"token_uri":    "https://oauth2.googleapis.com/token",
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("inicializando firebase: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("conectando ao firestore: %w", err)
	}
	return NewFirestoreRepositoryWithClient(client, cfg.Collection), nil
}

// NewFirestoreRepositoryWithClient usa um cliente já criado.
func NewFirestoreRepositoryWithClient(client *firestore.Client, collection string) *FirestoreRepository {
	return &FirestoreRepository{client: client, collection: collection}
}

func (r *FirestoreRepository) users() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *FirestoreRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	doc, err := r.users().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeUser(doc)
}

// FindUserIDByStripeCustomerID não decodifica o documento: um campo gravado com outro
// tipo pelo app cliente não pode impedir a revogação.
func (r *FirestoreRepository) FindUserIDByStripeCustomerID(ctx context.Context, customerID string) (string, error) {
	if customerID == "" {
		return "", nil
	}
	iter := r.users().Where("stripeCustomerId", "==", customerID).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return doc.Ref.ID, nil
}

func (r *FirestoreRepository) GrantPremium(ctx context.Context, userID, customerID, subscriptionID string) error {
	return r.update(ctx, userID, []firestore.Update{
		{Path: "isPremium", Value: true},
		{Path: "premiumExpiryDate", Value: nil},
		{Path: "subscriptionType", Value: domain.SubscriptionTypeStripe},
		{Path: "stripeCustomerId", Value: customerID},
		{Path: "stripeSubscriptionId", Value: subscriptionID},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (r *FirestoreRepository) RevokePremium(ctx context.Context, userID string) error {
	return r.update(ctx, userID, []firestore.Update{
		{Path: "isPremium", Value: false},
		{Path: "premiumExpiryDate", Value: firestore.ServerTimestamp},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (r *FirestoreRepository) Close() error {
	return r.client.Close()
}

// update falha com NotFound se o documento não existe; não criamos usuários.
func (r *FirestoreRepository) update(ctx context.Context, userID string, updates []firestore.Update) error {
	_, err := r.users().Doc(userID).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrUserNotFound
	}
	return err
}

func decodeUser(doc *firestore.DocumentSnapshot) (*domain.User, error) {
	var u domain.User
	if err := doc.DataTo(&u); err != nil {
		return nil, err
	}
	u.ID = doc.Ref.ID
	return &u, nil
}
