package sim

import "log/slog"

// ConsoleOutputSystem logs simulation progress every Interval steps.
type ConsoleOutputSystem struct {
	Interval uint64
	Logger   *slog.Logger
}

func (s *ConsoleOutputSystem) Access() Access {
	return Access{ResourceReads: Types(TypeOf[Step]())}
}

func (s *ConsoleOutputSystem) Run(ctx *Context) error {
	if s.Interval == 0 || ctx.Step()%s.Interval != 0 {
		return nil
	}
	logger := s.Logger
	if logger == nil {
		logger = ctx.Logger()
	}
	logger.Info("simulating", "step", ctx.Step(), "atoms", ctx.Store().Len())
	return nil
}
