package cbrpc

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"io"
	"net"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	log "github.com/sirupsen/logrus"
)

type methodType struct {
	method    reflect.Method
	argType   reflect.Type
	replyType reflect.Type
}

type service struct {
	name    string
	rcvr    reflect.Value
	methods map[string]*methodType
}

// Server accepts connections and dispatches requests to registered services.
// A service is any exported type with methods of the form
// Method(args *Args, reply *Reply) error.
type Server struct {
	listener   net.Listener
	serviceMap sync.Map // map[string]*service
}

func NewServer(listener net.Listener) *Server {
	return &Server{listener: listener}
}

// Addr returns the address the server's listener is bound to.
func (srv *Server) Addr() net.Addr {
	return srv.listener.Addr()
}

func (srv *Server) Register(rcvr any) error {
	s := new(service)
	s.rcvr = reflect.ValueOf(rcvr)
	sname := reflect.Indirect(s.rcvr).Type().Name()
	if sname == "" {
		return fmt.Errorf("cbrpc.Register: no service name for type %s", reflect.TypeOf(rcvr))
	}
	if !token.IsExported(sname) {
		return fmt.Errorf("cbrpc.Register: type %s is not exported", sname)
	}
	s.name = sname

	s.methods = suitableMethods(reflect.TypeOf(rcvr))
	if len(s.methods) == 0 {
		return fmt.Errorf("cbrpc.Register: type %s has no exported methods of suitable type", sname)
	}

	if _, dup := srv.serviceMap.LoadOrStore(sname, s); dup {
		return errors.New("cbrpc: service already defined: " + sname)
	}

	for m := range s.methods {
		log.Debugf("cbrpc.Register: %s.%s", sname, m)
	}
	return nil
}

// Is this type exported or a builtin?
func isExportedOrBuiltinType(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return token.IsExported(t.Name()) || t.PkgPath() == ""
}

// suitableMethods returns the RPC-shaped methods of typ.
func suitableMethods(typ reflect.Type) map[string]*methodType {
	methods := make(map[string]*methodType)
	for m := 0; m < typ.NumMethod(); m++ {
		method := typ.Method(m)
		mtype := method.Type
		if !method.IsExported() {
			continue
		}
		// Receiver, *args, *reply.
		if mtype.NumIn() != 3 {
			continue
		}
		argType := mtype.In(1)
		if !isExportedOrBuiltinType(argType) {
			continue
		}
		replyType := mtype.In(2)
		if replyType.Kind() != reflect.Pointer || !isExportedOrBuiltinType(replyType) {
			continue
		}
		if mtype.NumOut() != 1 || mtype.Out(0) != reflect.TypeOf((*error)(nil)).Elem() {
			continue
		}
		methods[method.Name] = &methodType{method: method, argType: argType, replyType: replyType}
	}
	return methods
}

func (srv *Server) Serve(ctx context.Context) error {
	// Closing the listener on cancellation unblocks Accept.
	go func() {
		<-ctx.Done()
		if err := srv.listener.Close(); err != nil {
			log.Debugf("cbrpc.Server: error closing listener %s: %v", srv.listener.Addr(), err)
		}
	}()

	var tempDelay time.Duration // how long to sleep on accept failure
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				log.Infof("cbrpc.Server: listener %s shut down", srv.listener.Addr())
				return ctx.Err()
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := 1 * time.Second; tempDelay > max {
					tempDelay = max
				}
				log.Warnf("cbrpc.Server: accept error on %s: %v; retrying in %v", srv.listener.Addr(), err, tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			log.Errorf("cbrpc.Server: accept error on %s: %v, stopping", srv.listener.Addr(), err)
			return err
		}

		tempDelay = 0
		log.Debugf("cbrpc.Server: accepted connection from %s", conn.RemoteAddr())
		go srv.serveConn(ctx, conn)
	}
}

func (srv *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	dec := cbor.NewDecoder(conn)
	enc := cbor.NewEncoder(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		req := &RequestHeader{}
		if err := dec.Decode(req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				log.Debugf("cbrpc.Server: connection %s closed", conn.RemoteAddr())
			} else {
				log.Errorf("cbrpc.Server: error decoding request header from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		dot := strings.LastIndex(req.Method, ".")
		if dot < 0 {
			log.Errorf("cbrpc.Server: service/method request ill-formed: %q from %s", req.Method, conn.RemoteAddr())
			return
		}
		serviceName := req.Method[:dot]
		methodName := req.Method[dot+1:]

		svci, ok := srv.serviceMap.Load(serviceName)
		if !ok {
			log.Errorf("cbrpc.Server: unknown service %q from %s", serviceName, conn.RemoteAddr())
			return
		}
		svc := svci.(*service)
		mtype := svc.methods[methodName]
		if mtype == nil {
			log.Errorf("cbrpc.Server: unknown method %q on service %q from %s", methodName, serviceName, conn.RemoteAddr())
			return
		}

		var argv reflect.Value
		if mtype.argType.Kind() == reflect.Pointer {
			argv = reflect.New(mtype.argType.Elem())
		} else {
			argv = reflect.New(mtype.argType)
		}
		if err := dec.Decode(argv.Interface()); err != nil {
			log.Errorf("cbrpc.Server: error decoding argument for %s from %s: %v", req.Method, conn.RemoteAddr(), err)
			return
		}
		if mtype.argType.Kind() != reflect.Pointer {
			argv = argv.Elem()
		}

		replyv := reflect.New(mtype.replyType.Elem())
		callErr := svc.call(mtype, argv, replyv)

		resp := &ResponseHeader{Seq: req.Seq}
		if callErr != nil {
			resp.Err = callErr.Error()
		}
		if err := enc.Encode(resp); err != nil {
			log.Errorf("cbrpc.Server: error encoding response header for %s: %v", req.Method, err)
			return
		}
		if callErr == nil {
			if err := enc.Encode(replyv.Interface()); err != nil {
				log.Errorf("cbrpc.Server: error encoding response body for %s: %v", req.Method, err)
				return
			}
		}
	}
}

func (svc *service) call(mtype *methodType, argv, replyv reflect.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("cbrpc.Server: panic during call to %s.%s: %v", svc.name, mtype.method.Name, r)
			err = fmt.Errorf("cbrpc: internal server error in %s.%s", svc.name, mtype.method.Name)
		}
	}()
	returnValues := mtype.method.Func.Call([]reflect.Value{svc.rcvr, argv, replyv})
	if errInter := returnValues[0].Interface(); errInter != nil {
		return errInter.(error)
	}
	return nil
}
