package telegram

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/callhour/internal/bucket"
	"github.com/MikeSquared-Agency/callhour/internal/calllog"
	"github.com/MikeSquared-Agency/callhour/internal/locale"
	"github.com/MikeSquared-Agency/callhour/internal/processor"
)

type sent struct {
	chatID int64
	text   string
}

type fakeAPI struct {
	mu      sync.Mutex
	batches [][]Update
	sent    []sent
	files   map[string]string
	polls   int
}

func (f *fakeAPI) GetUpdates(ctx context.Context, offset int64, _ time.Duration) ([]Update, error) {
	f.mu.Lock()
	f.polls++
	if len(f.batches) > 0 {
		b := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return b, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeAPI) SendMessage(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{chatID, text})
	return nil
}

func (f *fakeAPI) GetFile(_ context.Context, fileID string) (*File, error) {
	if _, ok := f.files[fileID]; !ok {
		return nil, errors.New("file not found")
	}
	return &File{FileID: fileID, FilePath: "documents/" + fileID}, nil
}

func (f *fakeAPI) Download(_ context.Context, filePath string) (io.ReadCloser, error) {
	id := strings.TrimPrefix(filePath, "documents/")
	return io.NopCloser(strings.NewReader(f.files[id])), nil
}

func (f *fakeAPI) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if s.chatID == chatID {
			out = append(out, s.text)
		}
	}
	return out
}

type fakeService struct {
	mu         sync.Mutex
	uploads    []string
	analyzeErr error
	noData     bool
	order      []string
	inspects   int
	reset      bool
	panicOn    string
}

func (f *fakeService) Upload(_ context.Context, sessionID, fileName string, r io.Reader) (*processor.UploadSummary, error) {
	data, _ := io.ReadAll(r)
	f.mu.Lock()
	f.uploads = append(f.uploads, sessionID+":"+fileName+":"+string(data))
	f.mu.Unlock()
	if string(data) == "bad" {
		return nil, &calllog.MissingColumnError{Field: calllog.FieldDuration}
	}
	return &processor.UploadSummary{
		SessionID: sessionID,
		FileName:  fileName,
		Columns:   calllog.Columns{Phone: "Номер клиента", CallTime: "Время", Duration: "Длительность"},
		Rows:      2,
		Dropped:   1,
		Preview: []calllog.CallRecord{
			{Phone: "79990000000", CallTime: calllog.TimeOfDay{Hour: 10}, Duration: 0},
		},
	}, nil
}

func (f *fakeService) Inspect(sessionID, phone string) (*processor.Analysis, error) {
	f.mu.Lock()
	f.inspects++
	f.mu.Unlock()
	if phone == f.panicOn {
		panic("boom")
	}
	if f.noData {
		return nil, bucket.ErrNoDataForNumber
	}
	return &processor.Analysis{
		SessionID: sessionID,
		Phone:     phone,
		Locale:    locale.Info{Carrier: "МТС", Region: "Москва", Timezone: "Europe/Moscow", Status: locale.StatusResolved},
	}, nil
}

func (f *fakeService) Recommend(_ context.Context, a *processor.Analysis) (*processor.Analysis, error) {
	f.mu.Lock()
	f.order = append(f.order, a.Phone)
	f.mu.Unlock()
	if f.analyzeErr != nil {
		return a, f.analyzeErr
	}
	a.Recommendation = "Звоните после 14:00"
	return a, nil
}

func (f *fakeService) Reset(string) bool { return f.reset }

func message(chatID int64, text string) Message {
	return Message{Chat: Chat{ID: chatID}, Text: text}
}

func runTurn(t *testing.T, svc Service, api *fakeAPI, msg Message) {
	t.Helper()
	b := NewBot(api, svc, time.Second, 1<<20, discardLogger())
	b.handle(context.Background(), msg)
}

func TestHandle_Start(t *testing.T) {
	api := &fakeAPI{}
	runTurn(t, &fakeService{}, api, message(1, "/start"))
	require.Len(t, api.texts(1), 1)
	assert.Equal(t, greetingText, api.texts(1)[0])
}

func TestHandle_Reset(t *testing.T) {
	api := &fakeAPI{}
	runTurn(t, &fakeService{reset: true}, api, message(1, "/reset@callhour_bot"))
	runTurn(t, &fakeService{}, api, message(1, "/reset"))
	assert.Equal(t, []string{resetText, nothingResetText}, api.texts(1))
}

func TestHandle_DocumentUpload(t *testing.T) {
	api := &fakeAPI{files: map[string]string{"F1": "rows"}}
	svc := &fakeService{}
	runTurn(t, svc, api, Message{Chat: Chat{ID: 5}, Document: &Document{FileID: "F1", FileName: "calls.xlsx", FileSize: 4}})

	assert.Equal(t, []string{"tg:5:calls.xlsx:rows"}, svc.uploads)
	texts := api.texts(5)
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "📌 Распознано")
	assert.Contains(t, texts[0], "79990000000")
	assert.Contains(t, texts[0], "10:00:00")
	assert.Contains(t, texts[1], "• Номер: Номер клиента")
	assert.Contains(t, texts[1], "пропущено: 1")
}

func TestHandle_DocumentMissingColumn(t *testing.T) {
	api := &fakeAPI{files: map[string]string{"F1": "bad"}}
	runTurn(t, &fakeService{}, api, Message{Chat: Chat{ID: 5}, Document: &Document{FileID: "F1", FileName: "calls.csv"}})

	require.Len(t, api.texts(5), 1)
	assert.Equal(t, "Ошибка обработки файла:\nНе найдена колонка: длительность", api.texts(5)[0])
}

func TestHandle_DocumentTooLarge(t *testing.T) {
	api := &fakeAPI{}
	svc := &fakeService{}
	runTurn(t, svc, api, Message{Chat: Chat{ID: 5}, Document: &Document{FileID: "F1", FileSize: 2 << 20}})

	assert.Empty(t, svc.uploads)
	require.Len(t, api.texts(5), 1)
	assert.Contains(t, api.texts(5)[0], "слишком большой")
}

func TestHandle_NumberAnalysis(t *testing.T) {
	api := &fakeAPI{}
	runTurn(t, &fakeService{}, api, message(7, " 79990000000 "))

	texts := api.texts(7)
	require.Len(t, texts, 3)
	assert.Equal(t, progressText, texts[0])
	assert.Contains(t, texts[1], "📞 Номер: 79990000000")
	assert.Contains(t, texts[1], "🏢 Оператор: МТС")
	assert.Contains(t, texts[1], "🌍 Часовой пояс: Europe/Moscow")
	assert.Equal(t, resultHeader+"Звоните после 14:00", texts[2])
}

func TestHandle_NumberInspectedOnce(t *testing.T) {
	api := &fakeAPI{}
	svc := &fakeService{}
	runTurn(t, svc, api, message(7, "79990000000"))

	assert.Equal(t, 1, svc.inspects)
	assert.Equal(t, []string{"79990000000"}, svc.order)
}

func TestHandle_NoData(t *testing.T) {
	api := &fakeAPI{}
	svc := &fakeService{noData: true}
	runTurn(t, svc, api, message(7, "70000000000"))

	assert.Equal(t, []string{noDataText}, api.texts(7))
	assert.Empty(t, svc.order)
}

func TestHandle_LLMFailureIsDiagnostic(t *testing.T) {
	api := &fakeAPI{}
	runTurn(t, &fakeService{analyzeErr: errors.New("iam exchange: status 401")}, api, message(7, "79990000000"))

	texts := api.texts(7)
	require.Len(t, texts, 3)
	assert.Equal(t, "Ошибка ответа модели: iam exchange: status 401", texts[2])
}

func TestHandle_LLMDisabled(t *testing.T) {
	api := &fakeAPI{}
	runTurn(t, &fakeService{analyzeErr: processor.ErrLLMDisabled}, api, message(7, "79990000000"))

	texts := api.texts(7)
	require.Len(t, texts, 3)
	assert.Equal(t, llmDisabledText, texts[2])
}

func TestHandle_PanicBecomesReply(t *testing.T) {
	api := &fakeAPI{}
	runTurn(t, &fakeService{panicOn: "boom"}, api, message(7, "boom"))
	assert.Equal(t, []string{internalError}, api.texts(7))
}

func TestRun_SequentialPerChat(t *testing.T) {
	var updates []Update
	for i := 0; i < 5; i++ {
		updates = append(updates, Update{UpdateID: int64(i + 1), Message: &Message{Chat: Chat{ID: 1}, Text: string(rune('a' + i))}})
		updates = append(updates, Update{UpdateID: int64(i + 100), Message: &Message{Chat: Chat{ID: 2}, Text: "x"}})
	}
	api := &fakeAPI{batches: [][]Update{updates}}
	svc := &fakeService{}
	b := NewBot(api, svc, time.Second, 0, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(api.texts(1)) == 15 && len(api.texts(2)) == 15
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bot did not stop")
	}

	// Each chat's turns run in arrival order: progress, card, result per number.
	texts := api.texts(1)
	for i := 0; i < 5; i++ {
		assert.Equal(t, progressText, texts[i*3])
		assert.Contains(t, texts[i*3+1], "📞 Номер: "+string(rune('a'+i)))
	}
}

func TestWorker_RetiresWhenIdle(t *testing.T) {
	api := &fakeAPI{}
	b := NewBot(api, &fakeService{}, time.Second, 0, discardLogger())
	b.idleTimeout = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.dispatch(ctx, message(3, "/start"))

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.queues) == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{greetingText}, api.texts(3))
	b.wg.Wait()
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "tg:-100123", SessionID(-100123))
}
