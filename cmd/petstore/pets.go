package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/imposter-project/contract-shim/internal/store"
	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/shim"
)

const defaultLimit = 100

type pet struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Tag  string `json:"tag,omitempty"`
}

type newPet struct {
	Name string `json:"name"`
	Tag  string `json:"tag,omitempty"`
}

// petService keeps pets in a store, keyed by id.
type petService struct {
	store *store.Store
	seed  map[string]interface{}

	mu     sync.Mutex
	nextID int64
}

func newPetService(s *store.Store, seed map[string]interface{}) *petService {
	p := &petService{store: s, seed: seed}
	p.reset()
	return p
}

// namespace exposes the handlers under the snake_case names of the contract's operations.
func (p *petService) namespace() *shim.Namespace {
	ns := shim.NewNamespace()
	ns.Handle("list_pets", p.listPets)
	ns.Handle("create_pets", p.createPets)
	ns.Handle("show_pet_by_id", p.showPetByID)
	ns.Handle("delete_pet", p.deletePet)
	ns.Child("admin").Handle("reset_pets", p.resetPets)
	return ns
}

func (p *petService) listPets(r *http.Request, _ shim.PathParams) (any, error) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("limit was validated as an integer: %w", err)
		}
		limit = n
	}

	pets, err := p.all()
	if err != nil {
		return nil, err
	}
	if len(pets) > limit {
		pets = pets[:limit]
	}
	return shim.JSON(http.StatusOK, pets)
}

func (p *petService) createPets(r *http.Request, _ shim.PathParams) (any, error) {
	var req newPet
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("request body was validated but cannot be decoded: %w", err)
	}

	p.mu.Lock()
	p.nextID++
	created := pet{ID: p.nextID, Name: req.Name, Tag: req.Tag}
	p.mu.Unlock()

	if err := p.put(created); err != nil {
		return nil, err
	}
	logger.Debugf("created pet %d", created.ID)
	return shim.JSON(http.StatusCreated, created)
}

func (p *petService) showPetByID(_ *http.Request, params shim.PathParams) (any, error) {
	value, ok := p.store.GetValue(params["petId"])
	if !ok {
		return shim.JSON(http.StatusNotFound, map[string]any{
			"code":    http.StatusNotFound,
			"message": fmt.Sprintf("pet %s not found", params["petId"]),
		})
	}
	found, err := decodePet(value)
	if err != nil {
		return nil, err
	}
	return shim.JSON(http.StatusOK, found)
}

func (p *petService) deletePet(_ *http.Request, params shim.PathParams) (any, error) {
	p.store.DeleteValue(params["petId"])
	return shim.NoContent(http.StatusNoContent), nil
}

func (p *petService) resetPets(*http.Request, shim.PathParams) (any, error) {
	p.reset()
	return shim.NoContent(http.StatusNoContent), nil
}

// reset replaces the stored pets with the seed data.
func (p *petService) reset() {
	p.store.Clear()
	store.Preload(p.store, p.seed)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID = 0
	for key := range p.seed {
		if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > p.nextID {
			p.nextID = id
		}
	}
}

func (p *petService) put(v pet) error {
	var value map[string]interface{}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	p.store.StoreValue(strconv.FormatInt(v.ID, 10), value)
	return nil
}

// all returns every stored pet ordered by id.
func (p *petService) all() ([]pet, error) {
	values := p.store.GetAllValues("")
	pets := make([]pet, 0, len(values))
	for key, value := range values {
		decoded, err := decodePet(value)
		if err != nil {
			return nil, fmt.Errorf("stored pet %s: %w", key, err)
		}
		pets = append(pets, decoded)
	}
	sort.Slice(pets, func(i, j int) bool { return pets[i].ID < pets[j].ID })
	return pets, nil
}

// decodePet accepts the shapes store providers hand back: decoded JSON maps or raw JSON.
func decodePet(value interface{}) (pet, error) {
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return pet{}, err
		}
	}
	var decoded pet
	err := json.Unmarshal(data, &decoded)
	return decoded, err
}
