package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/retime/timing/latency"
)

var _ = Describe("Latency", func() {
	var table *latency.Table

	BeforeEach(func() {
		table = latency.NewTable()
	})

	Describe("Default Timing Values", func() {
		It("should have correct AND delay", func() {
			Expect(table.Config().AndDelay).To(Equal(1.0))
		})

		It("should have correct inverter delay", func() {
			Expect(table.Config().NotDelay).To(Equal(0.5))
		})

		It("should have correct fan-in penalty", func() {
			Expect(table.Config().FanInPenalty).To(Equal(0.25))
		})
	})

	Describe("Gate Delays", func() {
		It("should return the base delay for 2-input gates", func() {
			d, err := table.GetDelay("NAND", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(Equal(0.8))
		})

		It("should match gate types case-insensitively", func() {
			d, err := table.GetDelay("xor", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(Equal(1.5))
		})

		It("should accept BUFF as an alias of BUF", func() {
			d, err := table.GetDelay("BUFF", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(Equal(0.5))
		})

		It("should add the fan-in penalty for wide gates", func() {
			d, err := table.GetDelay("AND", 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(BeNumerically("~", 1.5, 1e-12))
		})

		It("should reject unknown gate types", func() {
			_, err := table.GetDelay("MAJ3", 3)
			Expect(err).To(MatchError(latency.ErrUnknownGate))
		})
	})

	Describe("Sequential Detection", func() {
		It("should detect flip-flops", func() {
			Expect(table.IsSequential("DFF")).To(BeTrue())
			Expect(table.IsSequential("dff")).To(BeTrue())
			Expect(table.IsSequential("AND")).To(BeFalse())
		})
	})

	Describe("Custom Configuration", func() {
		It("should use custom config values", func() {
			config := latency.DefaultTimingConfig()
			config.AndDelay = 2
			config.Overrides = map[string]float64{"MAJ3": 1.75, "OR": 4}
			customTable := latency.NewTableWithConfig(config)

			and, err := customTable.GetDelay("AND", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(and).To(Equal(2.0))

			maj, err := customTable.GetDelay("maj3", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(maj).To(Equal(1.75))

			or, err := customTable.GetDelay("OR", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(or).To(Equal(4.0))
		})
	})
})

var _ = Describe("TimingConfig", func() {
	Describe("Default Config", func() {
		It("should create valid default config", func() {
			config := latency.DefaultTimingConfig()
			Expect(config.Validate()).To(Succeed())
		})
	})

	Describe("Validation", func() {
		It("should reject zero AND delay", func() {
			config := latency.DefaultTimingConfig()
			config.AndDelay = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject negative inverter delay", func() {
			config := latency.DefaultTimingConfig()
			config.NotDelay = -1
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject negative fan-in penalty", func() {
			config := latency.DefaultTimingConfig()
			config.FanInPenalty = -0.1
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject negative overrides", func() {
			config := latency.DefaultTimingConfig()
			config.Overrides = map[string]float64{"MUX": -2}
			Expect(config.Validate()).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			original.Overrides = map[string]float64{"MUX": 1}
			clone := original.Clone()

			clone.AndDelay = 100
			clone.Overrides["MUX"] = 7

			Expect(original.AndDelay).To(Equal(1.0))
			Expect(original.Overrides["MUX"]).To(Equal(1.0))
			Expect(clone.AndDelay).To(Equal(100.0))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := latency.DefaultTimingConfig()
			original.AndDelay = 5
			original.XorDelay = 10

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.AndDelay).To(Equal(5.0))
			Expect(loaded.XorDelay).To(Equal(10.0))
		})

		It("should keep defaults for fields missing from the file", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"nor_delay": 3}`), 0644)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.NorDelay).To(Equal(3.0))
			Expect(loaded.AndDelay).To(Equal(1.0))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})
