package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Drivers de armazenamento suportados.
const (
	DriverFirestore = "firestore"
	DriverSQLite    = "sqlite"
)

// Config reúne tudo o que vem do ambiente. Nada aqui é lido de novo depois do startup.
type Config struct {
	Addr      string
	StaticDir string

	// URL base usada para montar as URLs de sucesso, cancelamento e retorno do portal.
	Domain string `validate:"required"`

	StripeSecretKey      string `validate:"required"`
	StripePublishableKey string
	BasicPriceID         string
	ProPriceID           string

	// Vazio desliga a verificação de assinatura do webhook (modo inseguro, só para uso local).
	StripeWebhookSecret string

	StoreDriver     string `validate:"oneof=firestore sqlite"`
	SQLitePath      string `validate:"required_if=StoreDriver sqlite"`
	UsersCollection string `validate:"required"`

	FirebaseProjectID   string
	FirebaseClientEmail string
	FirebasePrivateKey  string
}

// envFiles são os lugares onde procuramos o .env, a partir da raiz ou de cmd/<app>.
var envFiles = []string{".env", "../../.env"}

// Load lê o .env (se existir) e depois o ambiente do processo.
// Variáveis já definidas no processo têm prioridade sobre o arquivo.
func Load() Config {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err == nil {
			break
		}
	}

	return Config{
		Addr:                 getEnv("APP_ADDR", ":4242"),
		StaticDir:            getEnv("STATIC_DIR", ""),
		Domain:               getEnv("DOMAIN", getEnv("URL", "")),
		StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
		BasicPriceID:         getEnv("BASIC_PRICE_ID", ""),
		ProPriceID:           getEnv("PRO_PRICE_ID", ""),
		StripeWebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StoreDriver:          strings.ToLower(getEnv("STORE_DRIVER", DriverFirestore)),
		SQLitePath:           getEnv("SQLITE_PATH", "./sqlite-database.db"),
		UsersCollection:      getEnv("USERS_COLLECTION", "users"),
		FirebaseProjectID:    getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseClientEmail:  getEnv("FIREBASE_CLIENT_EMAIL", ""),
		// A chave privada costuma vir com "\n" literais quando colada numa variável de ambiente.
		FirebasePrivateKey: strings.ReplaceAll(getEnv("FIREBASE_PRIVATE_KEY", ""), `\n`, "\n"),
	}
}

// Validate confere os campos obrigatórios.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("configuração inválida: %s", strings.Join(fields, ", "))
}

// WebhookSigningEnabled diz se os eventos do webhook serão verificados.
func (c Config) WebhookSigningEnabled() bool {
	return c.StripeWebhookSecret != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
