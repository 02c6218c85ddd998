package calc

import (
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"time"
)

// RPC argument and reply types. Fields are exported for net/rpc.

type CreateStackArgs struct{}

type CreateStackReply struct {
	ClientID string
}

type PushValueArgs struct {
	ClientID string
	Value    int
}

type PushOperationArgs struct {
	ClientID string
	Operator string
}

type PopArgs struct {
	ClientID string
}

type PopReply struct {
	Value int
}

type IsEmptyArgs struct {
	ClientID string
}

type IsEmptyReply struct {
	Empty bool
}

type DelayPopArgs struct {
	ClientID string
	Millis   int
}

type Nothing struct{}

// Service exposes a Calculator over net/rpc.
type Service struct {
	calc *Calculator
}

func NewService() *Service {
	return &Service{calc: New()}
}

func (s *Service) CreateStack(args *CreateStackArgs, reply *CreateStackReply) error {
	reply.ClientID = s.calc.CreateStack()
	return nil
}

func (s *Service) PushValue(args *PushValueArgs, reply *Nothing) error {
	return s.calc.PushValue(args.ClientID, args.Value)
}

func (s *Service) PushOperation(args *PushOperationArgs, reply *Nothing) error {
	return s.calc.PushOperation(args.ClientID, args.Operator)
}

func (s *Service) Pop(args *PopArgs, reply *PopReply) error {
	v, err := s.calc.Pop(args.ClientID)
	if err != nil {
		return err
	}
	reply.Value = v
	return nil
}

func (s *Service) IsEmpty(args *IsEmptyArgs, reply *IsEmptyReply) error {
	empty, err := s.calc.IsEmpty(args.ClientID)
	if err != nil {
		return err
	}
	reply.Empty = empty
	return nil
}

func (s *Service) DelayPop(args *DelayPopArgs, reply *PopReply) error {
	v, err := s.calc.DelayPop(args.ClientID, time.Duration(args.Millis)*time.Millisecond)
	if err != nil {
		return err
	}
	reply.Value = v
	return nil
}

// Serve registers the service and accepts RPC connections on ln until
// the listener is closed.
func Serve(ln net.Listener, log *slog.Logger) error {
	srv := rpc.NewServer()
	if err := srv.RegisterName("Calculator", NewService()); err != nil {
		return fmt.Errorf("register calculator service: %w", err)
	}
	log.Info("calculator service listening", "addr", ln.Addr().String())
	srv.Accept(ln)
	return nil
}
