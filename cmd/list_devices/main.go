package main

import (
	"fmt"
	"log"

	"github.com/kevmo314/go-rgbdt/pkg/realsense"
	"github.com/kevmo314/go-rgbdt/pkg/uvcdesc"
	usb "github.com/kevmo314/go-usb"
)

const (
	classVideo             = 14
	subclassVideoStreaming = 2
)

func listRealSense() {
	ctx, err := realsense.NewContext()
	if err != nil {
		log.Printf("Failed to create RealSense context: %v", err)
		return
	}
	defer ctx.Close()

	n, err := ctx.DeviceCount()
	if err != nil {
		log.Printf("Failed to query RealSense devices: %v", err)
		return
	}
	fmt.Printf("Found %d RealSense device(s):\n\n", n)
	for i := 0; i < n; i++ {
		dev, err := ctx.OpenDevice(i)
		if err != nil {
			fmt.Printf("Device %d: (could not open: %v)\n", i, err)
			continue
		}
		info, err := dev.Info()
		dev.Close()
		if err != nil {
			fmt.Printf("Device %d: (could not read info: %v)\n", i, err)
			continue
		}
		fmt.Printf("Device %d: %s\n", i, info.Name)
		fmt.Printf("  Serial: %s\n", info.Serial)
		fmt.Printf("  Firmware: %s\n\n", info.Firmware)
	}
}

func printFormats(extra []byte) {
	formats, err := uvcdesc.Parse(extra)
	if err != nil {
		fmt.Printf("      (could not parse formats: %v)\n", err)
		return
	}
	for _, f := range formats {
		fmt.Printf("      Format %d: %s\n", f.Index, f.String())
		for _, fr := range f.Frames {
			fmt.Printf("        %dx%d", fr.Width, fr.Height)
			for _, fps := range fr.FPS() {
				fmt.Printf(" %.1f", fps)
			}
			fmt.Println(" fps")
		}
	}
}

func main() {
	listRealSense()

	fmt.Println("Listing USB video devices...")

	devices, err := usb.DeviceList()
	if err != nil {
		log.Fatalf("Failed to list devices: %v", err)
	}

	found := 0
	for _, dev := range devices {
		handle, err := dev.Open()
		if err != nil {
			continue
		}
		config, err := handle.GetActiveConfigDescriptor()
		if err != nil {
			handle.Close()
			continue
		}

		video := false
		for _, iface := range config.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.InterfaceClass == classVideo {
					video = true
				}
			}
		}
		if !video {
			handle.Close()
			continue
		}
		found++

		fmt.Printf("\nDevice %s:\n", dev.Path)
		fmt.Printf("  VID:PID: %04x:%04x\n", dev.Descriptor.VendorID, dev.Descriptor.ProductID)
		if dev.SysfsStrings != nil {
			if dev.SysfsStrings.Manufacturer != "" {
				fmt.Printf("  Manufacturer: %s\n", dev.SysfsStrings.Manufacturer)
			}
			if dev.SysfsStrings.Product != "" {
				fmt.Printf("  Product: %s\n", dev.SysfsStrings.Product)
			}
			if dev.SysfsStrings.Serial != "" {
				fmt.Printf("  Serial: %s\n", dev.SysfsStrings.Serial)
			}
		}
		for _, iface := range config.Interfaces {
			if len(iface.AltSettings) == 0 {
				continue
			}
			alt := iface.AltSettings[0]
			if alt.InterfaceClass != classVideo || alt.InterfaceSubClass != subclassVideoStreaming {
				continue
			}
			fmt.Printf("    Interface %d: Video Streaming\n", alt.InterfaceNumber)
			printFormats(alt.Extra)
		}
		handle.Close()
	}

	if found == 0 {
		fmt.Println("No USB video devices found")
		fmt.Println("\nNote: On Windows, only devices with the WinUSB driver installed")
		fmt.Println("can be opened. Use -aux with the OpenCV device index instead.")
	}
}
