package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/xid"
	"github.com/spf13/pflag"
	"ppobmart/internal/app/catalog"
	"ppobmart/internal/app/logger"
	mw "ppobmart/internal/app/middleware"
)

func main() {
	listen := pflag.StringP("listen-addr", "a", "127.0.0.1:8090", "address to listen on")
	password := pflag.StringP("password", "k", "", "expected rqid header, any when empty")
	faults := pflag.Float32P("faults", "f", 0.2, "share of requests answered with a server error")
	pflag.Parse()

	// setting up signal capturing
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		osCall := <-stop
		logger.Global().Info().Str("signal", fmt.Sprintf("%+v", osCall)).Msg("System call")
		cancel()
	}()

	l := logger.New(true, true)

	s := &stub{password: *password, faults: *faults, refs: make(map[string]string)}
	if err := runServer(ctx, *listen, s, l); err != nil {
		l.Fatal().Err(err).Msg("Server run failed")
	}
}

func runServer(ctx context.Context, listenAddr string, s *stub, l logger.Logger) (err error) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(mw.Log(l))
	r.Post("/api/{endpoint}", s.Handle)

	srv := &http.Server{
		Addr:    listenAddr,
		Handler: r,
	}

	go func() {
		l.Info().Str("listen_address", listenAddr).Msg("Listening incoming connections")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("")
		}
	}()

	<-ctx.Done()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	l.Info().Msg("Server exited properly")

	return nil
}

// stub imitates the provider: it answers in JSON or in KEY:VALUE text, and fails at random.
type stub struct {
	password string
	faults   float32

	mu   sync.Mutex
	refs map[string]string // ref_1 -> ref_2
}

type reply struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (s *stub) Handle(w http.ResponseWriter, r *http.Request) {
	endpoint := chi.URLParam(r, "endpoint")
	l := logger.Ctx(r.Context()).With().Str("endpoint", endpoint).Logger()

	if s.password != "" && r.Header.Get("rqid") != s.password {
		writeJSON(w, reply{Status: "GAGAL", Message: "IP tidak terdaftar atau rqid salah"})
		return
	}

	var in map[string]string
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	l.Debug().Interface("body", in).Msg("Request")

	if rand.Float32() < s.faults {
		switch rand.Intn(3) {
		case 0:
			http.Error(w, "fail", http.StatusInternalServerError)
		case 1:
			http.Error(w, "too many requests", http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		}
		return
	}

	switch endpoint {
	case "topup", "payment":
		s.settle(w, in)
	case "status":
		s.status(w, in)
	case "inquiry":
		writeJSON(w, reply{Status: "00", Message: "Inquiry sukses", Data: map[string]interface{}{
			"customer_name": "PELANGGAN " + strings.ToUpper(in["customer_id"]),
			"amount":        fmt.Sprintf("%d", 50000+rand.Intn(200)*1000),
			"admin_fee":     2500,
			"period":        time.Now().Format("Jan 2006"),
		}})
	case "balance":
		writeJSON(w, reply{Status: "success", Message: "ok", Data: map[string]string{"saldo": "1.500.000"}})
	case "product-categories":
		cc, _ := catalog.Default().Categories(r.Context())
		writeJSON(w, reply{Status: "success", Message: "ok", Data: cc})
	case "products":
		pp, _ := catalog.Default().Products(r.Context(), strings.ToUpper(in["category"]), "")
		out := make([]map[string]interface{}, 0, len(pp))
		for _, p := range pp {
			out = append(out, map[string]interface{}{
				"code": p.Code, "name": p.Name, "category": p.CategoryCode, "operator": p.Operator,
				"price": p.Price, "type": p.Type, "description": p.Description,
			})
		}
		writeJSON(w, reply{Status: "success", Message: "ok", Data: out})
	default:
		http.Error(w, "unknown endpoint", http.StatusNotFound)
	}
}

func (s *stub) settle(w http.ResponseWriter, in map[string]string) {
	ref := s.ref(in["ref_1"])

	switch n := rand.Intn(10); {
	case n < 5:
		writeJSON(w, reply{Status: "SUCCESS", Message: "Transaksi sukses", Data: map[string]string{"ref_2": ref, "sn": xid.New().String()}})
	case n < 7:
		_, _ = w.Write([]byte("STATUS:PENDING#REFID:" + ref + "#MSG:Transaksi sedang diproses"))
	case n < 9:
		writeJSON(w, reply{Status: "GAGAL", Message: "Saldo deposit tidak mencukupi"})
	default:
		_, _ = w.Write([]byte("STATUS:SUKSES|REFID:" + ref + "|MSG:Transaksi sukses"))
	}
}

func (s *stub) status(w http.ResponseWriter, in map[string]string) {
	if rand.Intn(3) == 0 {
		writeJSON(w, reply{Status: "PENDING", Message: "Masih diproses", Data: map[string]string{"ref_2": in["ref_2"]}})
		return
	}
	writeJSON(w, reply{Status: "SUCCESS", Message: "Transaksi sukses", Data: map[string]string{"ref_2": in["ref_2"]}})
}

// ref returns the provider reference of a reference, the same one on every retry.
func (s *stub) ref(ref1 string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.refs[ref1]; ok {
		return r
	}
	r := "IDT" + strings.ToUpper(xid.New().String())
	s.refs[ref1] = r
	return r
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
