package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"decantry/config"
	"decantry/database"
	"decantry/middleware"
	"decantry/models"
	"decantry/services"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "handlers-test-secret-at-least-32-chars"

type apiEnv struct {
	app   *fiber.App
	db    *gorm.DB
	clock *clockwork.FakeClock
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	var facts []models.CountryFact
	for i := 1; i <= 12; i++ {
		for n := 1; n <= 10; n++ {
			facts = append(facts, models.CountryFact{
				CountryName: fmt.Sprintf("Land%02d", i),
				FactNumber:  n,
				FactContent: fmt.Sprintf("hint %d.%d", i, n),
			})
		}
	}
	require.NoError(t, db.CreateInBatches(&facts, 100).Error)

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := services.New(db, services.NewFactStore(db), services.NewDBLedger(db), clock, config.DefaultGameConfig())

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(false)})
	New(svc).Register(app, middleware.NewAuth(testSecret, svc.Players))
	return &apiEnv{app: app, db: db, clock: clock}
}

func token(t *testing.T, id uint) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  id,
		"username": fmt.Sprintf("user%d", id),
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// call performs a request as player (0 for anonymous) and decodes the JSON response.
func (e *apiEnv) call(t *testing.T, method, path string, player uint, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if player != 0 {
		req.Header.Set("Authorization", "Bearer "+token(t, player))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// ok asserts a 2xx success body and returns it.
func (e *apiEnv) ok(t *testing.T, method, path string, player uint, body interface{}) map[string]interface{} {
	t.Helper()
	status, out := e.call(t, method, path, player, body)
	require.Less(t, status, 300, "%s %s: %v", method, path, out)
	require.Equal(t, true, out["success"], "%s %s: %v", method, path, out)
	return out
}

// openTable creates a table as host, seats the others and readies everyone.
func (e *apiEnv) openTable(t *testing.T, mode string, host uint, others ...uint) uint {
	t.Helper()
	out := e.ok(t, "POST", "/api/lobby/create", host, fiber.Map{"name": "den", "mode": mode, "maxPlayers": 6})
	tableID := uint(out["tableId"].(float64))
	for _, id := range others {
		e.clock.Advance(time.Second)
		e.ok(t, "POST", "/api/lobby/join", id, fiber.Map{"tableId": tableID})
	}
	for _, id := range append([]uint{host}, others...) {
		e.ok(t, "POST", "/api/lobby/toggle-ready", id, fiber.Map{"tableId": tableID})
	}
	return tableID
}

func (e *apiEnv) session(t *testing.T, gameID string) models.GameSession {
	t.Helper()
	var s models.GameSession
	require.NoError(t, e.db.Where("game_id = ?", gameID).Take(&s).Error)
	return s
}

func ftoa(f float64) string {
	return strconv.Itoa(int(f))
}
