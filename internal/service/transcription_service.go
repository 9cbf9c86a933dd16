package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/transcriptflow/server/config"
	"github.com/transcriptflow/server/internal/engine"
	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/model/dto"
	"github.com/transcriptflow/server/internal/pkg/pubsub"
	"github.com/transcriptflow/server/internal/pkg/queue"
	"github.com/transcriptflow/server/internal/pkg/storage"
	"github.com/transcriptflow/server/internal/repository"
)

const defaultWhisperModel = "base"

// TranscriptionRunner 同步与异步两种执行策略，共用同一套校验和额度检查
type TranscriptionRunner interface {
	RunSync(ctx context.Context, rc RequestContext, in *TranscriptionInput) (*dto.TranscriptionResponse, error)
	SubmitAsync(ctx context.Context, rc RequestContext, in *TranscriptionInput) (*dto.TaskHandle, error)
	Poll(ctx context.Context, rc RequestContext, taskID string) (*dto.TaskStatus, error)
	UploadLimit(userID int64) (int64, error)
}

// JobQueue 异步任务队列
type JobQueue interface {
	Push(ctx context.Context, msg *queue.TranscriptionMessage) error
}

// TranscriptionInput 上传文件和已存储音频二选一
type TranscriptionInput struct {
	File      *UploadedFile
	AudioRef  string
	Model     string
	Translate bool
}

type preparedAudio struct {
	filename  string
	model     string
	translate bool
	file      *UploadedFile
	ref       string
	data      []byte // 仅 AudioRef 输入时已加载
}

type TranscriptionService struct {
	quota             *QuotaService
	apiKeys           *APIKeyService
	transcriptionRepo *repository.TranscriptionRepository
	jobRepo           *repository.JobRepository
	store             storage.Store
	transcriber       engine.Transcriber
	queue             JobQueue
	tempDir           string
	useAPIKey         bool
}

var _ TranscriptionRunner = (*TranscriptionService)(nil)

func NewTranscriptionService(
	quota *QuotaService,
	apiKeys *APIKeyService,
	transcriptionRepo *repository.TranscriptionRepository,
	jobRepo *repository.JobRepository,
	store storage.Store,
	transcriber engine.Transcriber,
	jobQueue JobQueue,
	cfg *config.Config,
) *TranscriptionService {
	return &TranscriptionService{
		quota:             quota,
		apiKeys:           apiKeys,
		transcriptionRepo: transcriptionRepo,
		jobRepo:           jobRepo,
		store:             store,
		transcriber:       transcriber,
		queue:             jobQueue,
		tempDir:           cfg.Upload.TempDir,
		useAPIKey:         cfg.Whisper.Backend == "openai",
	}
}

// prepare 校验输入并检查额度，任何失败都不会触达引擎
func (s *TranscriptionService) prepare(ctx context.Context, rc RequestContext, in *TranscriptionInput) (*preparedAudio, error) {
	if in == nil {
		return nil, ErrEmptyInput
	}
	p := &preparedAudio{
		model:     strings.TrimSpace(in.Model),
		translate: in.Translate,
	}
	if p.model == "" {
		p.model = defaultWhisperModel
	}

	switch {
	case in.File != nil:
		if in.File.Filename == "" || in.File.Size == 0 {
			return nil, ErrEmptyInput
		}
		if !audioExtensions[fileExt(in.File.Filename)] {
			return nil, ErrUnsupportedAudioFormat
		}
		if err := checkAllowed(ErrFileTooLarge)(s.quota.FileSizeAllowed(rc.UserID, sizeInMB(in.File.Size))); err != nil {
			return nil, err
		}
		p.filename = filepath.Base(in.File.Filename)
		p.file = in.File

	case strings.TrimSpace(in.AudioRef) != "":
		ref, err := storage.ParseRef(strings.TrimSpace(in.AudioRef))
		if err != nil || !strings.HasPrefix(ref.Key, fmt.Sprintf("%d/", rc.UserID)) {
			return nil, ErrInvalidAudioRef
		}
		if !audioExtensions[fileExt(ref.Key)] {
			return nil, ErrUnsupportedAudioFormat
		}
		data, err := s.store.Get(ctx, ref.String())
		if err != nil {
			return nil, ErrInvalidAudioRef
		}
		if err := checkAllowed(ErrFileTooLarge)(s.quota.FileSizeAllowed(rc.UserID, sizeInMB(int64(len(data))))); err != nil {
			return nil, err
		}
		p.filename = path.Base(ref.Key)
		p.ref = ref.String()
		p.data = data

	default:
		return nil, ErrEmptyInput
	}

	if err := checkAllowed(ErrModelNotAllowed)(s.quota.ModelTierAllowed(rc.UserID, p.model)); err != nil {
		return nil, err
	}
	if err := checkAllowed(ErrQuotaExceeded)(s.quota.HasTranscriptionQuota(rc.UserID)); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *TranscriptionService) resolveKey(userID int64) (string, error) {
	if !s.useAPIKey {
		return "", nil
	}
	return s.apiKeys.Resolve(userID, ServiceOpenAI)
}

// UploadLimit 当前用户单个音频上传的字节上限
func (s *TranscriptionService) UploadLimit(userID int64) (int64, error) {
	return s.quota.UploadLimitBytes(userID)
}

// RunSync 在请求内完成转写
func (s *TranscriptionService) RunSync(ctx context.Context, rc RequestContext, in *TranscriptionInput) (*dto.TranscriptionResponse, error) {
	p, err := s.prepare(ctx, rc, in)
	if err != nil {
		return nil, err
	}
	apiKey, err := s.resolveKey(rc.UserID)
	if err != nil {
		return nil, err
	}

	var content io.Reader
	if p.file != nil {
		content = p.file.Reader
	} else {
		content = bytes.NewReader(p.data)
	}

	workDir, err := s.workDir()
	if err != nil {
		return nil, persistenceError(err)
	}
	defer os.RemoveAll(workDir)

	audioPath, err := writeTempFile(workDir, p.filename, content)
	if err != nil {
		return nil, persistenceError(err)
	}

	tr, err := s.transcribeAndPersist(ctx, rc.UserID, p.filename, p.model, p.translate, audioPath, apiKey, nil)
	if err != nil {
		return nil, err
	}
	return toTranscriptionResponse(tr), nil
}

// SubmitAsync 存储音频、建任务并入队，立即返回任务句柄
func (s *TranscriptionService) SubmitAsync(ctx context.Context, rc RequestContext, in *TranscriptionInput) (*dto.TaskHandle, error) {
	p, err := s.prepare(ctx, rc, in)
	if err != nil {
		return nil, err
	}
	if err := checkAllowed(ErrConcurrencyLimit)(s.quota.HasConcurrencySlot(rc.UserID)); err != nil {
		return nil, err
	}
	if _, err := s.resolveKey(rc.UserID); err != nil {
		return nil, err
	}

	audioRef := p.ref
	if p.file != nil {
		data, err := io.ReadAll(p.file.Reader)
		if err != nil {
			return nil, persistenceError(fmt.Errorf("read upload: %w", err))
		}
		key := storage.ObjectKey(rc.UserID, fmt.Sprintf("%s_%s", shortID(), p.filename))
		audioRef, err = s.store.Put(ctx, storage.BucketAudio, key, data, storage.ContentTypeFor(p.filename))
		if err != nil {
			return nil, persistenceError(err)
		}
	}

	job := &model.TranscriptionJob{
		TaskID:    uuid.NewString(),
		UserID:    rc.UserID,
		AudioRef:  audioRef,
		Filename:  p.filename,
		Model:     p.model,
		Translate: p.translate,
		Status:    model.JobPending,
	}
	if err := s.jobRepo.Create(job); err != nil {
		return nil, persistenceError(err)
	}

	msg := &queue.TranscriptionMessage{
		JobID:     job.ID,
		TaskID:    job.TaskID,
		UserID:    job.UserID,
		AudioRef:  job.AudioRef,
		Filename:  job.Filename,
		Model:     job.Model,
		Translate: job.Translate,
	}
	if err := s.queue.Push(ctx, msg); err != nil {
		job.Status = model.JobFailure
		job.ErrorKind = string(KindPersistence)
		job.ErrorMessage = "任务入队失败"
		if uerr := s.jobRepo.Update(job); uerr != nil {
			log.Printf("Failed to mark job %s as failed: %v", job.TaskID, uerr)
		}
		return nil, persistenceError(fmt.Errorf("enqueue job: %w", err))
	}

	log.Printf("Queued transcription task %s for user %d (%s, model=%s)", job.TaskID, rc.UserID, p.filename, p.model)
	return &dto.TaskHandle{TaskID: job.TaskID, Status: job.Status}, nil
}

// Poll 查询异步任务，其他用户的任务视为不存在
func (s *TranscriptionService) Poll(ctx context.Context, rc RequestContext, taskID string) (*dto.TaskStatus, error) {
	job, err := s.jobRepo.GetByTaskID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if job.UserID != rc.UserID && !rc.IsAdmin {
		return nil, ErrTaskNotFound
	}

	status := &dto.TaskStatus{
		TaskID:         job.TaskID,
		Status:         job.Status,
		Step:           job.CurrentStep,
		ErrorKind:      job.ErrorKind,
		Error:          job.ErrorMessage,
		ElapsedSeconds: job.ElapsedSeconds,
	}
	if job.Status == model.JobSuccess && job.TranscriptionID != nil {
		tr, err := s.transcriptionRepo.GetByID(*job.TranscriptionID)
		if err != nil {
			return nil, err
		}
		status.Result = toTranscriptionResponse(tr)
	}
	return status, nil
}

// ProcessQueued worker 执行队列中的任务，progress 可为 nil
func (s *TranscriptionService) ProcessQueued(ctx context.Context, msg *queue.TranscriptionMessage, progress func(step string)) (*model.Transcription, error) {
	report := func(step string) {
		if progress != nil {
			progress(step)
		}
	}

	report(pubsub.StepLoading)
	// 排队期间其他任务可能已用完额度
	if err := checkAllowed(ErrQuotaExceeded)(s.quota.HasTranscriptionQuota(msg.UserID)); err != nil {
		return nil, err
	}
	apiKey, err := s.resolveKey(msg.UserID)
	if err != nil {
		return nil, err
	}

	data, err := s.store.Get(ctx, msg.AudioRef)
	if err != nil {
		return nil, persistenceError(fmt.Errorf("load audio %s: %w", msg.AudioRef, err))
	}

	workDir, err := s.workDir()
	if err != nil {
		return nil, persistenceError(err)
	}
	defer os.RemoveAll(workDir)

	audioPath, err := writeTempFile(workDir, filepath.Base(msg.Filename), bytes.NewReader(data))
	if err != nil {
		return nil, persistenceError(err)
	}

	return s.transcribeAndPersist(ctx, msg.UserID, msg.Filename, msg.Model, msg.Translate, audioPath, apiKey, report)
}

// transcribeAndPersist 调用引擎，成功后写文本对象和记录，最后尽力记账
// 记录已写入但记账前进程退出时会少记一次用量
func (s *TranscriptionService) transcribeAndPersist(
	ctx context.Context,
	userID int64,
	filename, modelTier string,
	translate bool,
	audioPath, apiKey string,
	report func(step string),
) (*model.Transcription, error) {
	if report == nil {
		report = func(string) {}
	}

	report(pubsub.StepTranscribing)
	req := engine.TranscribeRequest{
		AudioPath: audioPath,
		Model:     modelTier,
		Translate: translate,
		APIKey:    apiKey,
	}
	result, err := s.transcriber.Transcribe(ctx, req)
	if err != nil {
		log.Printf("Transcription failed for user %d (%s): %v", userID, filename, err)
		return nil, processingError(err)
	}

	report(pubsub.StepSaving)
	segments, err := json.Marshal(result.Segments)
	if err != nil {
		return nil, persistenceError(err)
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	textKey := storage.ObjectKey(userID, fmt.Sprintf("%s_%s.txt", base, shortID()))
	objectRef, err := s.store.Put(ctx, storage.BucketTranscriptions, textKey, []byte(result.Text), storage.ContentTypeFor(".txt"))
	if err != nil {
		return nil, persistenceError(err)
	}

	tr := &model.Transcription{
		UserID:    userID,
		Filename:  filepath.Base(filename),
		Duration:  result.Duration,
		ModelUsed: modelTier,
		Task:      req.Task(),
		Language:  result.Language,
		Text:      result.Text,
		Segments:  segments,
		ObjectRef: objectRef,
	}
	if err := s.transcriptionRepo.Create(tr); err != nil {
		// 记录没写成，已上传的文本对象不能留成孤儿
		if delErr := s.store.Delete(ctx, objectRef); delErr != nil {
			log.Printf("Failed to delete orphan object %s: %v", objectRef, delErr)
		}
		return nil, persistenceError(err)
	}

	s.quota.recordActivityBestEffort(userID, model.ActivityTranscription, tr.Filename, 1)
	return tr, nil
}

func (s *TranscriptionService) workDir() (string, error) {
	base := s.tempDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", err
	}
	return os.MkdirTemp(base, "transcribe_*")
}

func toTranscriptionResponse(tr *model.Transcription) *dto.TranscriptionResponse {
	return &dto.TranscriptionResponse{
		ID:        tr.ID,
		Filename:  tr.Filename,
		Text:      tr.Text,
		Language:  tr.Language,
		Duration:  tr.Duration,
		Model:     tr.ModelUsed,
		Task:      tr.Task,
		Segments:  decodeSegments(tr),
		ObjectRef: tr.ObjectRef,
		CreatedAt: formatTime(tr.CreatedAt),
	}
}
