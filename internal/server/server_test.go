package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"silvess-backend/internal/config"
	"silvess-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type client struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func newClient(t *testing.T) *client {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:      "test-secret-test-secret-test-secret",
		JWTExpiry:      time.Hour,
		CORSOrigins:    "http://localhost:8000",
		FrontendURL:    "http://localhost:8000",
		MetricsEnabled: true,
	}
	return &client{t: t, app: New(cfg, testutil.NewDB(t), zap.NewNop(), nil)}
}

func (c *client) do(method, path, body string) (int, map[string]any) {
	c.t.Helper()
	code, raw := c.raw(method, path, body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return code, out
}

func (c *client) list(path string) []map[string]any {
	c.t.Helper()
	code, raw := c.raw("GET", path, "")
	if code != fiber.StatusOK {
		c.t.Fatalf("GET %s = %d %s", path, code, raw)
	}
	var out []map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		c.t.Fatalf("GET %s: %v", path, err)
	}
	return out
}

func (c *client) raw(method, path, body string) (int, []byte) {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.app.Test(req, -1)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw
}

func (c *client) must(want int, method, path, body string) map[string]any {
	c.t.Helper()
	code, out := c.do(method, path, body)
	if code != want {
		c.t.Fatalf("%s %s = %d %v, want %d", method, path, code, out, want)
	}
	return out
}

func (c *client) register(name, email string) map[string]any {
	c.t.Helper()
	out := c.must(fiber.StatusCreated, "POST", "/api/auth/register",
		fmt.Sprintf(`{"name":%q,"email":%q,"password":"secret123"}`, name, email))
	c.token = out["token"].(string)
	return out["user"].(map[string]any)
}

func TestHealthAndMetrics(t *testing.T) {
	c := newClient(t)
	if out := c.must(fiber.StatusOK, "GET", "/health", ""); out["status"] != "ok" {
		t.Fatalf("health = %v", out)
	}
	code, raw := c.raw("GET", "/metrics", "")
	if code != fiber.StatusOK || !strings.Contains(string(raw), "silvess_http_requests_total") {
		t.Fatalf("metrics = %d", code)
	}
}

func TestAuthGates(t *testing.T) {
	c := newClient(t)

	if code, _ := c.do("GET", "/api/ingredients", ""); code != fiber.StatusUnauthorized {
		t.Fatalf("no token = %d, want 401", code)
	}
	c.token = "garbage"
	if code, _ := c.do("GET", "/api/ingredients", ""); code != fiber.StatusUnauthorized {
		t.Fatalf("bad token = %d, want 401", code)
	}
	c.token = ""

	admin := c.register("Ana", "ana@example.com")
	if admin["role"] != "admin" {
		t.Fatalf("first user role = %v", admin["role"])
	}
	adminToken := c.token
	c.must(fiber.StatusCreated, "POST", "/api/ingredients", `{"name":"Rice","unit":"kg","unit_cost":5}`)

	user := c.register("Bia", "bia@example.com")
	if user["role"] != "user" {
		t.Fatalf("second user role = %v", user["role"])
	}
	if code, _ := c.do("DELETE", "/api/ingredients/1", ""); code != fiber.StatusForbidden {
		t.Fatalf("user delete = %d, want 403", code)
	}
	if code, _ := c.do("GET", "/api/audit-logs", ""); code != fiber.StatusForbidden {
		t.Fatalf("user audit logs = %d, want 403", code)
	}

	c.token = adminToken
	c.must(fiber.StatusOK, "DELETE", "/api/ingredients/1", "")
	logs := c.list("/api/audit-logs?entity_type=ingredient")
	if len(logs) != 2 {
		t.Fatalf("ingredient audit entries = %d, want 2", len(logs))
	}

	c.token = ""
	code, out := c.do("POST", "/api/auth/login", `{"email":"ana@example.com","password":"wrong"}`)
	if code != fiber.StatusUnauthorized {
		t.Fatalf("bad login = %d %v", code, out)
	}
	out = c.must(fiber.StatusOK, "POST", "/api/auth/login", `{"email":"ANA@example.com","password":"secret123"}`)
	if out["token"] == "" {
		t.Fatalf("login returned no token")
	}
}

func TestKitchenDay(t *testing.T) {
	c := newClient(t)
	c.register("Ana", "ana@example.com")

	flour := c.must(fiber.StatusCreated, "POST", "/api/ingredients",
		`{"name":"Flour","unit":"kg","unit_cost":4,"current_stock":10,"minimum_stock":2}`)
	cheese := c.must(fiber.StatusCreated, "POST", "/api/ingredients",
		`{"name":"Cheese","unit":"kg","unit_cost":30,"current_stock":2,"minimum_stock":1}`)

	sheetBody := fmt.Sprintf(`{"dish_name":"Pizza","category":"Mains","sale_price":40,"instructions":"stretch the dough",
		"ingredients":[{"ingredient_id":%v,"grams":250},{"ingredient_id":%v,"grams":150}]}`, flour["id"], cheese["id"])
	pizza := c.must(fiber.StatusCreated, "POST", "/api/sheets", sheetBody)
	// 250g * 4/kg + 150g * 30/kg
	if pizza["total_cost"] != 5.5 {
		t.Fatalf("pizza cost = %v", pizza["total_cost"])
	}

	lunch := c.must(fiber.StatusCreated, "POST", "/api/menus",
		fmt.Sprintf(`{"date":"2024-05-01","name":"Lunch","dishes":[{"sheet_id":%v}]}`, pizza["id"]))
	table := c.must(fiber.StatusCreated, "POST", "/api/menus/tables",
		fmt.Sprintf(`{"number":4,"menu_id":%v}`, lunch["id"]))
	if !strings.HasPrefix(table["qrcode_url"].(string), "data:image/png;base64,") {
		t.Fatalf("table code missing")
	}

	token := c.token
	c.token = ""
	public := c.must(fiber.StatusOK, "GET", fmt.Sprintf("/api/menus/%v", lunch["id"]), "")
	dishes := public["dishes"].([]any)
	if len(dishes) != 1 {
		t.Fatalf("public menu dishes = %v", dishes)
	}
	dish := dishes[0].(map[string]any)
	if dish["dish_name"] != "Pizza" || dish["sale_price"] != float64(40) {
		t.Fatalf("public dish = %v", dish)
	}
	for _, key := range []string{"sheet", "total_cost", "margin_percent", "instructions"} {
		if _, ok := dish[key]; ok {
			t.Fatalf("anonymous menu read exposes %s: %v", key, dish)
		}
	}
	c.token = token

	sale := c.must(fiber.StatusCreated, "POST", "/api/dashboard/sales",
		fmt.Sprintf(`{"sheet_id":%v,"quantity":2,"table_id":%v}`, pizza["id"], table["id"]))
	if sale["sale"].(map[string]any)["total_price"] != float64(80) {
		t.Fatalf("sale = %v", sale)
	}

	code, out := c.do("POST", "/api/dashboard/sales", fmt.Sprintf(`{"sheet_id":%v,"quantity":20}`, pizza["id"]))
	if code != fiber.StatusBadRequest || out["requested"] == nil {
		t.Fatalf("oversold = %d %v", code, out)
	}

	got := c.must(fiber.StatusOK, "GET", fmt.Sprintf("/api/ingredients/%v", cheese["id"]), "")
	if got["current_stock"] != 1.7 {
		t.Fatalf("cheese stock = %v, want 1.7", got["current_stock"])
	}

	gen := c.must(fiber.StatusCreated, "POST", "/api/inventory/generate", `{"inventory_date":"2024-05-01"}`)
	if gen["total_items"] != float64(2) {
		t.Fatalf("generated = %v", gen)
	}

	code, out = c.do("POST", "/api/inventory/close/2024-05-01", "")
	if code != fiber.StatusBadRequest || out["pending"] != float64(2) {
		t.Fatalf("close with pending = %d %v", code, out)
	}

	for _, it := range gen["items"].([]any) {
		rec := it.(map[string]any)
		body := `{"physical_quantity":1.5,"adjust_stock":true,"notes":"weekly count"}`
		if rec["ingredient_id"] == flour["id"] {
			body = `{"physical_quantity":9}`
		}
		c.must(fiber.StatusOK, "PUT", fmt.Sprintf("/api/inventory/%v", rec["id"]), body)
	}

	got = c.must(fiber.StatusOK, "GET", fmt.Sprintf("/api/ingredients/%v", cheese["id"]), "")
	if got["current_stock"] != 1.5 {
		t.Fatalf("adjusted cheese stock = %v, want 1.5", got["current_stock"])
	}
	hist := c.must(fiber.StatusOK, "GET", fmt.Sprintf("/api/ingredients/%v/movements", cheese["id"]), "")
	if check := hist["check"].(map[string]any); check["consistent"] != true {
		t.Fatalf("ledger check = %v", check)
	}

	c.must(fiber.StatusOK, "POST", "/api/inventory/close/2024-05-01", "")
	recs := c.list("/api/inventory?from=2024-05-01&to=2024-05-01")
	code, _ = c.do("PUT", fmt.Sprintf("/api/inventory/%v", recs[0]["id"]), `{"physical_quantity":1}`)
	if code != fiber.StatusBadRequest {
		t.Fatalf("count after close = %d, want 400", code)
	}

	report := c.must(fiber.StatusOK, "GET", "/api/inventory/report/2024-05-01", "")
	if report["items_with_difference"] != float64(2) {
		t.Fatalf("report = %v", report)
	}

	stats := c.must(fiber.StatusOK, "GET", "/api/dashboard/stats", "")
	if stats["tables"] != float64(1) || stats["menus"] != float64(1) {
		t.Fatalf("stats = %v", stats)
	}
	stockReport := c.must(fiber.StatusOK, "GET", "/api/dashboard/reports/stock", "")
	if stockReport["total_ingredients"] != float64(2) {
		t.Fatalf("stock report = %v", stockReport)
	}

	today := time.Now().UTC().Format("2006-01-02")
	summary := c.must(fiber.StatusOK, "GET", "/api/dashboard/reports/sales?from="+today+"&to="+today, "")
	if totals := summary["totals"].(map[string]any); totals["total_sales"] != float64(1) {
		t.Fatalf("sales summary = %v", summary)
	}
	if code, _ := c.do("GET", "/api/dashboard/reports/sales", ""); code != fiber.StatusBadRequest {
		t.Fatalf("report without period = %d", code)
	}
}
