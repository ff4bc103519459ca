package rknn

import (
	"fmt"
	"io"
)

// Query writes the SDK version and the model's tensor layout in human
// readable form
func (r *Runtime) Query(w io.Writer) error {

	ver, err := r.SDKVersion()

	if err != nil {
		return fmt.Errorf("error querying SDK version: %w", err)
	}

	fmt.Fprintf(w, "Driver Version: %s, API Version: %s\n", ver.DriverVersion, ver.APIVersion)
	fmt.Fprintf(w, "Model Input Number: %d, Output Number: %d\n",
		r.ioNum.NumberInput, r.ioNum.NumberOutput)

	fmt.Fprintf(w, "Input tensors:\n")

	for _, attr := range r.inputAttrs {
		fmt.Fprintf(w, "  %s\n", attr)
	}

	fmt.Fprintf(w, "Output tensors:\n")

	for _, attr := range r.outputAttrs {
		fmt.Fprintf(w, "  %s\n", attr)
	}

	return nil
}
