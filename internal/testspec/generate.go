package testspec

import (
	"fmt"

	"al.essio.dev/pkg/shellescape"
)

// Worker environment variables provided by the device-testing service.
const (
	envAppPath      = "$FARM_APP_PATH"
	envPackagePath  = "$FARM_TEST_PACKAGE_PATH"
	envArtifactsDir = "$FARM_ARTIFACTS_DIR"
	envDeviceUDID   = "$FARM_DEVICE_UDID"
)

// readinessAttempts bounds the local driver readiness wait: one second
// between probes, failing fast with a diagnostic dump on exhaustion.
const readinessAttempts = 90

// caseFilterVar is exported into the suite runner's environment to narrow
// execution to a single test case.
const caseFilterVar = "FARM_CASE_GREP"

// Generate validates the selection and renders the execution script for the
// given platform. Identical inputs produce byte-identical output.
func Generate(sel Selection, platform Platform) ([]byte, error) {
	doc, err := Build(sel, platform)
	if err != nil {
		return nil, err
	}
	return doc.Render()
}

// Build assembles the structured script document without rendering it.
func Build(sel Selection, platform Platform) (Document, error) {
	if err := sel.Validate(); err != nil {
		return Document{}, err
	}
	if platform != PlatformAndroid && platform != PlatformIOS {
		return Document{}, fmt.Errorf("unknown platform %q", platform)
	}

	return Document{
		Version: "0.1",
		Phases: Phases{
			Install:  installPhase(),
			PreTest:  preTestPhase(platform),
			Test:     testPhase(sel, platform),
			PostTest: postTestPhase(),
		},
	}, nil
}

func installPhase() Phase {
	return Phase{Commands: []string{
		"export PATH=" + envPackagePath + "/node_modules/.bin:$PATH",
		"cd " + envPackagePath,
		"npm ci --no-audit --prefer-offline",
	}}
}

func preTestPhase(platform Platform) Phase {
	driver := "uiautomator2"
	if platform == PlatformIOS {
		driver = "xcuitest"
	}

	return Phase{Commands: []string{
		"cd " + envPackagePath,
		fmt.Sprintf("nohup appium --use-drivers %s --log appium.log --relaxed-security >/dev/null 2>&1 &", driver),
		// Poll the local driver endpoint once per second; dump diagnostics
		// and abort the run when the budget is spent.
		fmt.Sprintf("i=0; while [ $i -lt %d ]; do if curl -sf http://127.0.0.1:4723/status >/dev/null; then break; fi; sleep 1; i=$((i+1)); done", readinessAttempts),
		fmt.Sprintf("if [ $i -ge %d ]; then echo 'driver did not become ready'; tail -n 200 appium.log; exit 1; fi", readinessAttempts),
	}}
}

func testPhase(sel Selection, platform Platform) Phase {
	conf := fmt.Sprintf("config/wdio.%s.conf.ts", platform)

	commands := []string{
		"cd " + envPackagePath,
		"export FARM_APP=" + envAppPath,
		"export FARM_UDID=" + envDeviceUDID,
	}

	switch sel.Mode {
	case ModeFull:
		commands = append(commands, fmt.Sprintf("npx wdio run %s", conf))
	case ModeSingleFile:
		commands = append(commands,
			fmt.Sprintf("npx wdio run %s --spec %s", conf, shellescape.Quote(sel.FilePath)))
	case ModeSingleCase:
		commands = append(commands,
			fmt.Sprintf("export %s=%s", caseFilterVar, shellescape.Quote(sel.CaseFilter)),
			fmt.Sprintf("npx wdio run %s --spec %s", conf, shellescape.Quote(sel.FilePath)))
	}

	return Phase{Commands: commands}
}

func postTestPhase() Phase {
	return Phase{Commands: []string{
		"cd " + envPackagePath,
		// Merge the per-spec result files into one HTML report when the
		// structured results directory exists; skip silently otherwise.
		"if [ -d reports/json ]; then npx mochawesome-merge 'reports/json/*.json' > reports/merged.json && npx marge reports/merged.json --reportDir reports/html --reportFilename report --inline; fi",
		"cp reports/html/report.html " + envArtifactsDir + "/ 2>/dev/null || true",
		"cp -r screenshots " + envArtifactsDir + "/ 2>/dev/null || true",
	}}
}
