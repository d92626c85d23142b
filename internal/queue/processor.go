package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// Handler processes one dequeued job's payload
type Handler func(ctx context.Context, job Job) error

// JobProcessor polls the registered queues with a pool of workers
type JobProcessor struct {
	queue       *RedisQueue
	handlers    map[string]Handler
	workerCount int
	stopChan    chan struct{}
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewJobProcessor creates a new JobProcessor
func NewJobProcessor(queue *RedisQueue, workerCount int) *JobProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobProcessor{
		queue:       queue,
		handlers:    make(map[string]Handler),
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// RegisterHandler registers a handler for a specific queue
func (p *JobProcessor) RegisterHandler(queueName string, handler Handler) {
	p.handlers[queueName] = handler
}

// Start starts the job processor
func (p *JobProcessor) Start() {
	log.Printf("Starting job processor with %d workers", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop stops the job processor and waits for in-flight jobs
func (p *JobProcessor) Stop() {
	log.Println("Stopping job processor")
	close(p.stopChan)
	p.cancel()
	p.wg.Wait()
	log.Println("Job processor stopped")
}

func (p *JobProcessor) worker(id int) {
	defer p.wg.Done()

	queues := make([]string, 0, len(p.handlers))
	for queue := range p.handlers {
		queues = append(queues, queue)
	}
	if len(queues) == 0 {
		log.Printf("Worker %d exiting: no queues registered", id)
		return
	}

	for {
		select {
		case <-p.stopChan:
			return
		default:
			for _, queueName := range queues {
				job, err := p.queue.Dequeue(queueName)
				if err != nil {
					log.Printf("Worker %d error getting job from queue %s: %v", id, queueName, err)
					continue
				}
				if job == nil {
					continue
				}
				if err := p.processJob(job); err != nil {
					log.Printf("Worker %d error processing job %s: %v", id, job.ID, err)
				}
				// One job per iteration so other queues get a turn
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
}

func (p *JobProcessor) processJob(job *Job) error {
	handler, ok := p.handlers[job.Queue]
	if !ok {
		p.queue.Fail(job.ID, fmt.Errorf("no handler registered for queue: %s", job.Queue))
		return fmt.Errorf("no handler registered for queue: %s", job.Queue)
	}

	if err := handler(p.ctx, *job); err != nil {
		p.queue.Fail(job.ID, err)
		return fmt.Errorf("job processing failed: %w", err)
	}
	return p.queue.Complete(job.ID)
}

// JobPayload is a helper function to unmarshal job payload
func JobPayload(payload []byte, v interface{}) error {
	return json.Unmarshal(payload, v)
}
