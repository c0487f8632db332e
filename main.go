// Author: FlightSurety maintainers
// Last updated: Oct 18, 2026
// Last modified by: FlightSurety maintainers

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"flightsurety/config"
	"flightsurety/contract"
	"flightsurety/metrics"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("flightsurety.main")

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Error loading configuration: " + err.Error())
	}
	if err := flogging.Global.ActivateSpec(cfg.LogSpec); err != nil {
		panic("Error applying log spec '" + cfg.LogSpec + "': " + err.Error())
	}

	opts := []contract.Option{contract.WithParameters(cfg.Genesis.Parameters())}
	if cfg.EntropySeed != 0 {
		logger.Warningf("Using seeded topic entropy (seed %d); do not run with more than one endorsing peer", cfg.EntropySeed)
		opts = append(opts, contract.WithEntropy(contract.NewSeededEntropy(cfg.EntropySeed)))
	}

	cc, err := contractapi.NewChaincode(contract.NewFlightSuretyContract(opts...))
	if err != nil {
		panic("Error creating FlightSuretyContract: " + err.Error())
	}

	if cfg.ServerAddress == "" {
		if err := cc.Start(); err != nil {
			panic("Error starting chaincode: " + err.Error())
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddress != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddress); err != nil {
				logger.Errorf("Metrics server stopped: %v", err)
			}
		}()
	}

	server := &shim.ChaincodeServer{
		CCID:     cfg.ChaincodeID,
		Address:  cfg.ServerAddress,
		CC:       cc,
		TLSProps: shim.TLSProperties{Disabled: cfg.TLSDisabled},
	}
	logger.Infof("Starting chaincode server %s on %s", cfg.ChaincodeID, cfg.ServerAddress)
	if err := server.Start(); err != nil {
		panic("Error starting chaincode server: " + err.Error())
	}
}
