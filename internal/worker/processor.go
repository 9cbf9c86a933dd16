package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/transcriptflow/server/internal/model"
	"github.com/transcriptflow/server/internal/pkg/pubsub"
	"github.com/transcriptflow/server/internal/pkg/queue"
	"github.com/transcriptflow/server/internal/repository"
	"github.com/transcriptflow/server/internal/service"
)

// Runner 执行一条排队的转写任务
type Runner interface {
	ProcessQueued(ctx context.Context, msg *queue.TranscriptionMessage, progress func(step string)) (*model.Transcription, error)
}

// ProgressPublisher 进度发布
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, msg *pubsub.ProgressMessage) error
}

// Processor 任务处理器
type Processor struct {
	jobRepo   *repository.JobRepository
	runner    Runner
	publisher ProgressPublisher
}

// NewProcessor 创建任务处理器
func NewProcessor(jobRepo *repository.JobRepository, runner Runner, publisher ProgressPublisher) *Processor {
	return &Processor{
		jobRepo:   jobRepo,
		runner:    runner,
		publisher: publisher,
	}
}

// Process 处理转写任务，业务失败记录在任务上，只有任务本身读写失败才返回 error
func (p *Processor) Process(ctx context.Context, msg *queue.TranscriptionMessage) error {
	job, err := p.jobRepo.GetByID(msg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job.Status != model.JobPending {
		log.Printf("Job %s: skipped, status is %s", job.TaskID, job.Status)
		return nil
	}

	// 更新状态为处理中
	now := time.Now()
	job.Status = model.JobStarted
	job.StartedAt = &now
	if err := p.jobRepo.Update(job); err != nil {
		return fmt.Errorf("failed to mark job started: %w", err)
	}

	publish := func(status, step, errMsg string, transcriptionID int64) {
		if p.publisher == nil {
			return
		}
		err := p.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			UserID:          job.UserID,
			JobID:           job.ID,
			TaskID:          job.TaskID,
			Status:          status,
			Step:            step,
			Error:           errMsg,
			TranscriptionID: transcriptionID,
		})
		if err != nil {
			log.Printf("Job %s: failed to publish progress: %v", job.TaskID, err)
		}
	}

	progress := func(step string) {
		job.CurrentStep = pubsub.StepMessages[step]
		if err := p.jobRepo.UpdateStep(job.ID, job.CurrentStep); err != nil {
			log.Printf("Job %s: failed to update step: %v", job.TaskID, err)
		}
		publish(model.JobStarted, step, "", 0)
	}

	tr, runErr := p.runner.ProcessQueued(ctx, msg, progress)

	completedAt := time.Now()
	job.CompletedAt = &completedAt
	job.ElapsedSeconds = int(completedAt.Sub(now).Seconds())

	if runErr != nil {
		job.Status = model.JobFailure
		job.ErrorKind = string(service.KindOf(runErr))
		job.ErrorMessage = runErr.Error()
		if err := p.jobRepo.Update(job); err != nil {
			return fmt.Errorf("failed to mark job failed: %w", err)
		}
		publish(model.JobFailure, pubsub.StepDone, job.ErrorMessage, 0)
		log.Printf("Job %s: failed (%s): %v", job.TaskID, job.ErrorKind, runErr)
		return nil
	}

	job.Status = model.JobSuccess
	job.CurrentStep = pubsub.StepMessages[pubsub.StepDone]
	job.TranscriptionID = &tr.ID
	if err := p.jobRepo.Update(job); err != nil {
		return fmt.Errorf("failed to mark job success: %w", err)
	}
	publish(model.JobSuccess, pubsub.StepDone, "", tr.ID)

	log.Printf("Job %s: completed in %d seconds, transcription %d", job.TaskID, job.ElapsedSeconds, tr.ID)
	return nil
}
