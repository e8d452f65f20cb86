package job

// Batch parameters matching the classic single-host datacenter example:
// ten cloudlets of 10000 MI, one PE each, 300-byte input and output.
const (
	DefaultBatchSize  = 10
	DefaultLength     = 10000
	DefaultPEs        = 1
	DefaultFileSize   = 300
	DefaultOutputSize = 300
)

// Submitter generates the fixed batch of cloudlets handed to the engine at
// startup. It is stateless after submission.
type Submitter struct {
	count      int
	length     float64
	pes        int
	fileSize   int64
	outputSize int64
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithBatchSize sets the number of cloudlets in the batch.
func WithBatchSize(n int) SubmitterOption {
	return func(s *Submitter) { s.count = n }
}

// WithLength sets the work length of each cloudlet in million instructions.
func WithLength(mi float64) SubmitterOption {
	return func(s *Submitter) { s.length = mi }
}

// WithPEs sets the processing elements each cloudlet requires.
func WithPEs(n int) SubmitterOption {
	return func(s *Submitter) { s.pes = n }
}

// WithFootprint sets the input and output file sizes in bytes.
func WithFootprint(in, out int64) SubmitterOption {
	return func(s *Submitter) {
		s.fileSize = in
		s.outputSize = out
	}
}

// NewSubmitter creates a Submitter with the given options.
// Unset options use defaults.
func NewSubmitter(opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		count:      DefaultBatchSize,
		length:     DefaultLength,
		pes:        DefaultPEs,
		fileSize:   DefaultFileSize,
		outputSize: DefaultOutputSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Batch creates the startup batch of cloudlets. IDs are assigned
// sequentially from zero; every cloudlet starts in StatusCreated with no
// owning VM.
func (s *Submitter) Batch() []*Cloudlet {
	batch := make([]*Cloudlet, s.count)
	for i := range batch {
		batch[i] = &Cloudlet{
			ID:         i,
			Length:     s.length,
			PEs:        s.pes,
			FileSize:   s.fileSize,
			OutputSize: s.outputSize,
			Status:     StatusCreated,
			VMID:       -1,
		}
	}
	return batch
}
