package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spark-fund/backend/internal/auth"
	"github.com/spark-fund/backend/internal/crowdfund"
	"github.com/spark-fund/backend/internal/events"
	"github.com/spark-fund/backend/internal/http/dto"
	"github.com/spark-fund/backend/internal/middleware"
	"github.com/spark-fund/backend/internal/models"
	"github.com/spark-fund/backend/internal/repositories"
	"github.com/spark-fund/backend/internal/services"
	"go.uber.org/zap"
)

const testSecret = "handler-test-secret"

type storeReader struct {
	store *crowdfund.MemoryStore
}

func (r storeReader) GetView(_ context.Context, id uuid.UUID, now int64) (*models.CampaignView, error) {
	c, ok := r.store.Campaign(id)
	if !ok {
		return nil, crowdfund.ErrCampaignNotFound
	}
	vault, _ := r.store.Account(c.VaultID)
	return &models.CampaignView{Campaign: c, EscrowBalance: vault.Balance, Status: c.Status(now)}, nil
}

func (r storeReader) List(context.Context, repositories.CampaignFilter) ([]models.CampaignView, error) {
	return []models.CampaignView{}, nil
}

func (r storeReader) GetBacker(_ context.Context, campaignID, backerID uuid.UUID) (*models.BackerData, error) {
	bd, ok := r.store.BackerData(campaignID, backerID)
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &bd, nil
}

func (r storeReader) ListBackers(context.Context, uuid.UUID, int, int) ([]models.BackerData, error) {
	return nil, nil
}

func (r storeReader) UpsertPage(_ context.Context, campaignID uuid.UUID, url string) (*models.CampaignPage, error) {
	return &models.CampaignPage{CampaignID: campaignID, URL: url}, nil
}

type nopAudit struct{}

func (nopAudit) Log(context.Context, models.AuditLog) error { return nil }
func (nopAudit) GetByEntity(context.Context, string, uuid.UUID, int, int) ([]models.AuditLog, error) {
	return nil, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, events.Event) error { return nil }

type fixture struct {
	app     *fiber.App
	store   *crowdfund.MemoryStore
	engine  *crowdfund.Engine
	now     int64
	tokens  map[uuid.UUID]string
	deposit *services.AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  crowdfund.NewMemoryStore(),
		now:    1_700_000_000,
		tokens: map[uuid.UUID]string{},
	}
	f.engine = crowdfund.NewEngine(f.store)
	f.engine.SetNowFunc(func() int64 { return f.now })

	log := zap.NewNop()
	svc := services.NewCampaignService(f.engine, storeReader{f.store}, nopAudit{}, nopPublisher{}, nil, log)
	f.deposit = services.NewAccountService(f.engine, nil, nopAudit{}, nopPublisher{}, nil, log)
	h := NewCampaignHandler(svc, log)

	f.app = fiber.New()
	f.app.Use(middleware.RequestIDMiddleware())
	api := f.app.Group("/api/v1", middleware.AuthMiddleware(testSecret, log))
	api.Post("/campaigns", h.CreateCampaign)
	api.Get("/campaigns", h.ListCampaigns)
	api.Get("/campaigns/:id", h.GetCampaign)
	api.Post("/campaigns/:id/pledges", h.Pledge)
	api.Post("/campaigns/:id/withdraw", h.Withdraw)
	api.Get("/campaigns/:id/backers/:backer", h.GetBacker)
	api.Put("/campaigns/:id/page", h.SetPage)
	return f
}

func (f *fixture) account(t *testing.T, balance int64) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	err := f.store.WithTx(ctx, func(tx crowdfund.Tx) error {
		return tx.CreateAccount(ctx, &models.Account{ID: id, Kind: models.AccountKindUser})
	})
	if err != nil {
		t.Fatal(err)
	}
	if balance > 0 {
		if _, err := f.deposit.Deposit(ctx, id, balance, "lt-"+id.String(), ""); err != nil {
			t.Fatal(err)
		}
	}
	tok, err := auth.GenerateJWT(testSecret, id, "0:"+id.String(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	f.tokens[id] = tok
	return id
}

func (f *fixture) do(t *testing.T, as uuid.UUID, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if tok, ok := f.tokens[as]; ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestCampaignFlow_HTTP(t *testing.T) {
	f := newFixture(t)
	creator := f.account(t, 0)
	backer := f.account(t, 5_000_000_000)

	status, body := f.do(t, creator, "POST", "/api/v1/campaigns", dto.CreateCampaignRequest{
		Seed: 7, EndingAt: f.now + 100, FundingGoalTON: "2.5",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create status = %d, body = %v", status, body)
	}
	data := body["data"].(map[string]any)
	id := data["id"].(string)
	if data["funding_goal"].(float64) != 2_500_000_000 {
		t.Errorf("funding_goal = %v", data["funding_goal"])
	}

	status, body = f.do(t, creator, "POST", "/api/v1/campaigns", dto.CreateCampaignRequest{
		Seed: 7, EndingAt: f.now + 100, FundingGoal: 1,
	})
	if status != fiber.StatusConflict || body["code"] != "CampaignAlreadyExists" {
		t.Errorf("duplicate create = %d %v", status, body)
	}

	status, body = f.do(t, backer, "POST", "/api/v1/campaigns/"+id+"/pledges", dto.PledgeRequest{AmountTON: "3"})
	if status != fiber.StatusOK {
		t.Fatalf("pledge status = %d, body = %v", status, body)
	}

	status, body = f.do(t, backer, "POST", "/api/v1/campaigns/"+id+"/pledges", dto.PledgeRequest{Amount: 0})
	if status != fiber.StatusBadRequest || body["code"] != "PledgeAmountZero" {
		t.Errorf("zero pledge = %d %v", status, body)
	}

	status, body = f.do(t, backer, "POST", "/api/v1/campaigns/"+id+"/pledges", dto.PledgeRequest{Amount: 10_000_000_000})
	if status != fiber.StatusUnprocessableEntity || body["code"] != "InsufficientFunds" {
		t.Errorf("overdrawn pledge = %d %v", status, body)
	}

	status, body = f.do(t, creator, "POST", "/api/v1/campaigns/"+id+"/withdraw", nil)
	if status != fiber.StatusUnprocessableEntity || body["code"] != "CampaignStillRunning" {
		t.Errorf("early withdraw = %d %v", status, body)
	}

	f.now += 101

	status, body = f.do(t, backer, "POST", "/api/v1/campaigns/"+id+"/withdraw", nil)
	if status != fiber.StatusForbidden || body["code"] != "UnauthorizedCreator" {
		t.Errorf("backer withdraw = %d %v", status, body)
	}

	status, body = f.do(t, creator, "POST", "/api/v1/campaigns/"+id+"/withdraw", nil)
	if status != fiber.StatusOK {
		t.Fatalf("withdraw = %d %v", status, body)
	}
	if amt := body["data"].(map[string]any)["amount"].(float64); amt != 3_000_000_000 {
		t.Errorf("withdrawn amount = %v", amt)
	}

	status, body = f.do(t, creator, "POST", "/api/v1/campaigns/"+id+"/withdraw", nil)
	if status != fiber.StatusConflict || body["code"] != "CampaignAlreadyWithdrawn" {
		t.Errorf("second withdraw = %d %v", status, body)
	}

	status, body = f.do(t, creator, "GET", "/api/v1/campaigns/"+id, nil)
	if status != fiber.StatusOK || body["data"].(map[string]any)["status"] != string(models.CampaignStatusWithdrawn) {
		t.Errorf("get after withdraw = %d %v", status, body)
	}
}

func TestCampaignHandler_BadInput(t *testing.T) {
	f := newFixture(t)
	caller := f.account(t, 0)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad id", "GET", "/api/v1/campaigns/nope", nil, fiber.StatusBadRequest, "BadRequest"},
		{"missing", "GET", "/api/v1/campaigns/" + uuid.NewString(), nil, fiber.StatusNotFound, "CampaignNotFound"},
		{"bad status filter", "GET", "/api/v1/campaigns?status=paused", nil, fiber.StatusBadRequest, "InvalidStatus"},
		{"bad goal", "POST", "/api/v1/campaigns", dto.CreateCampaignRequest{Seed: 1, EndingAt: 1_700_000_100, FundingGoalTON: "abc"}, fiber.StatusBadRequest, "BadRequest"},
		{"zero goal", "POST", "/api/v1/campaigns", dto.CreateCampaignRequest{Seed: 1, EndingAt: 1_700_000_100}, fiber.StatusBadRequest, "InvalidFundingGoal"},
		{"past deadline", "POST", "/api/v1/campaigns", dto.CreateCampaignRequest{Seed: 1, EndingAt: 1, FundingGoal: 5}, fiber.StatusBadRequest, "InvalidDeadline"},
		{"unknown backer", "GET", fmt.Sprintf("/api/v1/campaigns/%s/backers/%s", uuid.New(), uuid.New()), nil, fiber.StatusNotFound, "NotFound"},
		{"bad page url", "PUT", "/api/v1/campaigns/" + uuid.NewString() + "/page", dto.SetPageRequest{URL: "ftp://x"}, fiber.StatusBadRequest, "InvalidPageURL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := f.do(t, caller, tc.method, tc.path, tc.body)
			if status != tc.status || body["code"] != tc.code {
				t.Errorf("got %d %v, want %d %s", status, body, tc.status, tc.code)
			}
		})
	}
}

func TestCampaignHandler_RequiresToken(t *testing.T) {
	f := newFixture(t)
	status, body := f.do(t, uuid.Nil, "GET", "/api/v1/campaigns", nil)
	if status != fiber.StatusUnauthorized || body["code"] != "Unauthorized" {
		t.Errorf("anonymous list = %d %v", status, body)
	}
}

func TestWriteError_Internal(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return writeError(c, zap.NewNop(), errors.New("connection reset"))
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body dto.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != fiber.StatusInternalServerError || body.Code != "Internal" {
		t.Errorf("got %d %+v", resp.StatusCode, body)
	}
	if body.Error == "connection reset" {
		t.Error("internal error text leaked to client")
	}
}

func TestCodeStatus_CoversEveryKind(t *testing.T) {
	for _, e := range []*crowdfund.Error{
		crowdfund.ErrPledgeAmountZero,
		crowdfund.ErrCampaignHasFinished,
		crowdfund.ErrUnauthorizedCreator,
		crowdfund.ErrCampaignFailedNotEnoughFunds,
		crowdfund.ErrCampaignStillRunning,
		crowdfund.ErrCampaignAlreadyWithdrawn,
		crowdfund.ErrInvalidFundingGoal,
		crowdfund.ErrInvalidDeadline,
		crowdfund.ErrCampaignExists,
		crowdfund.ErrCampaignNotFound,
		crowdfund.ErrAccountNotFound,
		crowdfund.ErrAccountExists,
		crowdfund.ErrInsufficientFunds,
		crowdfund.ErrAmountOverflow,
		crowdfund.ErrInvalidAmount,
		crowdfund.ErrDuplicateExternalRef,
		crowdfund.ErrInvalidDepositTarget,
	} {
		if _, ok := codeStatus[e.Code]; !ok {
			t.Errorf("no HTTP status for %s", e.Code)
		}
	}
}
