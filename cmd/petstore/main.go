// Command petstore serves the Swagger petstore contract with handlers bound by naming
// convention. Every request and response is checked against the contract.
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/imposter-project/contract-shim/internal/adapter"
	"github.com/imposter-project/contract-shim/internal/adapter/awslambda"
	"github.com/imposter-project/contract-shim/internal/adapter/httpserver"
	"github.com/imposter-project/contract-shim/internal/config"
	"github.com/imposter-project/contract-shim/internal/contract"
	"github.com/imposter-project/contract-shim/internal/store"
	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/shim"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	//go:embed petstore.yaml
	petstoreContract []byte
	//go:embed pets.json
	seedPets []byte
)

type flags struct {
	configDir   string
	storeDriver string
	preload     string
	apiKeys     []string
}

func parseFlags(args []string) (*flags, error) {
	f := &flags{}
	app := kingpin.New("petstore", "Serves the petstore contract with request and response validation.")
	app.Flag("config-dir", "Directories of *-shim.yaml files, comma separated. The embedded contract is served when empty.").
		Envar("SHIM_CONFIG_DIR").StringVar(&f.configDir)
	app.Flag("store", "Store driver: store-inmem, store-redis or store-dynamodb.").
		Envar("SHIM_STORE_DRIVER").Default("store-inmem").StringVar(&f.storeDriver)
	app.Flag("preload", "JSON file of pets keyed by id, replacing the built-in seed data.").
		StringVar(&f.preload)
	app.Flag("api-key", "Key accepted by the apiKey security scheme of the embedded contract.").
		Envar("PETSTORE_API_KEYS").Default("letmein").StringsVar(&f.apiKeys)

	if _, err := app.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func main() {
	startTime := time.Now()

	f, err := parseFlags(os.Args[1:])
	if err != nil {
		kingpin.Fatalf("%v", err)
	}

	seed, err := loadSeed(f.preload)
	if err != nil {
		logger.Errorf("failed to load pets: %v", err)
		os.Exit(1)
	}
	pets := newPetService(store.Open("pets", store.NewStoreProvider(f.storeDriver)), seed)

	serverConfig, handler, err := buildHandler(context.Background(), f, pets)
	if err != nil {
		logger.Errorf("failed to start: %v", err)
		os.Exit(1)
	}
	logger.Infof("startup completed in %v", time.Since(startTime))

	var a adapter.Adapter
	if adapter.IsLambda() {
		a = awslambda.NewAdapter(handler)
	} else {
		a = httpserver.NewAdapter(serverConfig, handler)
	}
	if err := a.Start(); err != nil {
		logger.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
}

// buildHandler serves the contracts named by shim configs when a config directory is given, and
// the embedded contract otherwise.
func buildHandler(ctx context.Context, f *flags, pets *petService) (*config.ServerConfig, http.Handler, error) {
	configDir := f.configDir
	if configDir == "" && adapter.IsLambda() {
		if info, err := os.Stat(awslambda.DefaultConfigDir); err == nil && info.IsDir() {
			logger.Infof("SHIM_CONFIG_DIR not set, using %s", awslambda.DefaultConfigDir)
			configDir = awslambda.DefaultConfigDir
		}
	}

	if configDir != "" {
		serverConfig, host, err := adapter.InitialiseShim(ctx, configDir, translators, shim.WithNamespace(pets.namespace()))
		if err != nil {
			return nil, nil, err
		}
		return serverConfig, host, nil
	}

	app, err := newEmbeddedApplication(pets, f.apiKeys)
	if err != nil {
		return nil, nil, err
	}
	return config.LoadServerConfig(), app, nil
}

func newEmbeddedApplication(pets *petService, apiKeys []string) (*shim.Application, error) {
	c, err := contract.Parse(petstoreContract, "petstore.yaml")
	if err != nil {
		return nil, err
	}
	return shim.New(c,
		shim.WithNamespace(pets.namespace()),
		shim.WithErrorTranslator(handleError),
		shim.WithSecurityVerifier(shim.DefaultAPIKeyScheme, shim.NewAPIKeyVerifier(apiKeys...)),
	)
}

func loadSeed(path string) (map[string]interface{}, error) {
	data := seedPets
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}
	var seed map[string]interface{}
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("invalid pets JSON: %w", err)
	}
	return seed, nil
}
