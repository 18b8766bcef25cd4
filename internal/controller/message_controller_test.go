package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/beaconsms/broadcast-service/internal/controller"
	"github.com/beaconsms/broadcast-service/internal/gateway"
	"github.com/beaconsms/broadcast-service/internal/model"
	"github.com/beaconsms/broadcast-service/internal/repository"
	"github.com/beaconsms/broadcast-service/internal/service"
)

// okGateway accepts every send.
type okGateway struct {
	sends int
}

func (g *okGateway) Send(ctx context.Context, req gateway.SendRequest) (gateway.SendResponse, error) {
	g.sends++
	return gateway.SendResponse{MessageID: "tx-" + strconv.Itoa(g.sends)}, nil
}

func newMessageController(t *testing.T, activeSubscribers int) (*controller.MessageController, *okGateway) {
	t.Helper()
	messages := repository.NewMemoryMessageStore()
	subscribers := repository.NewMemorySubscriberStore()
	logs := repository.NewMemoryDeliveryLogStore(subscribers)
	gw := &okGateway{}

	for i := 0; i < activeSubscribers; i++ {
		s := &model.Subscriber{PhoneNumber: "+2547000000" + strconv.Itoa(10+i)}
		if err := subscribers.Upsert(context.Background(), s); err != nil {
			t.Fatalf("failed to seed subscriber: %v", err)
		}
	}

	dispatcher := &service.Dispatcher{
		Messages:    messages,
		Subscribers: subscribers,
		Logs:        logs,
		Gateway:     gw,
		FromNumber:  "+15550000000",
	}
	return &controller.MessageController{
		Dispatcher: dispatcher,
		Aggregator: &service.StatusAggregator{Messages: messages, Logs: logs},
		Retry:      &service.RetryCoordinator{Subscribers: subscribers, Logs: logs, Dispatcher: dispatcher},
	}, gw
}

func TestCreateMessageHandler(t *testing.T) {
	ctrl, gw := newMessageController(t, 3)

	b, _ := json.Marshal(map[string]string{"body": "Hello subscribers"})
	req := httptest.NewRequest("POST", "/messages", bytes.NewReader(b))
	w := httptest.NewRecorder()

	ctrl.CreateMessage(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var res struct {
		Message  model.Message       `json:"message"`
		Delivery service.SendSummary `json:"delivery"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if res.Delivery.Total != 3 || res.Delivery.Sent != 3 || res.Delivery.Failed != 0 {
		t.Errorf("expected total=3 sent=3 failed=0, got %+v", res.Delivery)
	}
	if res.Message.Body != "Hello subscribers" {
		t.Errorf("expected message body echoed, got %q", res.Message.Body)
	}
	if gw.sends != 3 {
		t.Errorf("expected 3 gateway sends, got %d", gw.sends)
	}
}

func TestCreateMessageEmptyBody(t *testing.T) {
	ctrl, _ := newMessageController(t, 3)

	b, _ := json.Marshal(map[string]string{"body": "  "})
	req := httptest.NewRequest("POST", "/messages", bytes.NewReader(b))
	w := httptest.NewRecorder()

	ctrl.CreateMessage(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Result().StatusCode)
	}
}

func TestCreateMessageNoRecipients(t *testing.T) {
	ctrl, _ := newMessageController(t, 0)

	b, _ := json.Marshal(map[string]string{"body": "Hello"})
	req := httptest.NewRequest("POST", "/messages", bytes.NewReader(b))
	w := httptest.NewRecorder()

	ctrl.CreateMessage(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Result().StatusCode)
	}
}

func TestRetryDeliveryInvalidID(t *testing.T) {
	ctrl, _ := newMessageController(t, 1)

	b, _ := json.Marshal(map[string]string{"log_id": "not-a-uuid"})
	req := httptest.NewRequest("POST", "/delivery-logs/retry", bytes.NewReader(b))
	w := httptest.NewRecorder()

	ctrl.RetryDelivery(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Result().StatusCode)
	}
}

func TestRetryDeliveryUnknownLog(t *testing.T) {
	ctrl, _ := newMessageController(t, 1)

	b, _ := json.Marshal(map[string]string{"log_id": "8f14e45f-ceea-4672-950f-fc0b29b2a85e"})
	req := httptest.NewRequest("POST", "/delivery-logs/retry", bytes.NewReader(b))
	w := httptest.NewRecorder()

	ctrl.RetryDelivery(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Result().StatusCode)
	}
}
